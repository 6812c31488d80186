// Package cli wires the cobra command tree: "verify" runs the
// orchestrator end to end, "version" prints build info. Structured the
// way the teacher's internal/cli does it: package-level persistent
// flags, an init() that registers subcommands, and an Execute()
// entrypoint cmd/ calls directly.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	logPath    string
	keyringDir string
)

var rootCmd = &cobra.Command{
	Use:   "intoto-verify",
	Short: "Verify a software supply-chain layout against recorded links",
	Long: `intoto-verify checks that a signed sequence of steps and their recorded
evidence satisfy a layout's authorization, threshold, and artifact-rule
requirements, the way an in-toto-style final product verification does.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "Path to the verification audit log (default: ~/.intoto-verify/audit.jsonl)")
	rootCmd.PersistentFlags().StringVar(&keyringDir, "keyring", "", "Directory of trusted verification keys (default: ~/.intoto-verify)")
}

// Execute runs the command tree; cmd/intoto-verify/main.go calls this
// and exits nonzero on error.
func Execute() error {
	return rootCmd.Execute()
}
