package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gzhole/intoto-verify/internal/auditlog"
	"github.com/gzhole/intoto-verify/internal/config"
	"github.com/gzhole/intoto-verify/internal/keybundle"
	"github.com/gzhole/intoto-verify/internal/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <layout> <link-dir>",
	Short: "Verify a layout against the links in link-dir",
	Args:  cobra.ExactArgs(2),
	RunE:  runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	layoutPath, linkDir := args[0], args[1]

	cfg, err := config.Load(logPath, keyringDir)
	if err != nil {
		return fmt.Errorf("resolve config: %w", err)
	}

	keys, err := loadTrustedKeys(cfg.KeyringDir)
	if err != nil {
		return fmt.Errorf("load trusted keys: %w", err)
	}

	audit, err := auditlog.Open(cfg.LogPath)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer audit.Close()

	o := verify.New()
	o.Audit = audit

	_, verr := o.VerifyLayoutFile(layoutPath, linkDir, keys)
	printResult(layoutPath, verr)
	if verr != nil {
		return verr
	}
	return nil
}

// printResult writes an ACCEPT/REJECT banner, boxed when stdout is a
// terminal and plain otherwise (adapted from the teacher's
// approval.Ask TTY-aware formatting).
func printResult(layoutName string, err error) {
	interactive := term.IsTerminal(int(os.Stdout.Fd()))

	if err == nil {
		if interactive {
			fmt.Println("╔══════════════════════════════════════╗")
			fmt.Printf("║  ACCEPT  %s\n", filepath.Base(layoutName))
			fmt.Println("╚══════════════════════════════════════╝")
		} else {
			fmt.Printf("ACCEPT %s\n", layoutName)
		}
		return
	}

	if interactive {
		fmt.Fprintln(os.Stderr, "╔══════════════════════════════════════╗")
		fmt.Fprintf(os.Stderr, "║  REJECT  %s\n", filepath.Base(layoutName))
		fmt.Fprintln(os.Stderr, "╚══════════════════════════════════════╝")
		fmt.Fprintf(os.Stderr, "  %v\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "REJECT %s: %v\n", layoutName, err)
	}
}

// loadTrustedKeys reads every file in dir as a trusted verification
// key: an armored OpenPGP public key block, or a bare in-toto keyval
// JSON document. An empty/missing dir yields an empty (rejecting) key
// set, not an error — VerifyLayoutFile turns that into the required
// SignatureVerificationError itself.
func loadTrustedKeys(dir string) (map[string]keybundle.Entry, error) {
	keys := map[string]keybundle.Entry{}
	if dir == "" {
		return keys, nil
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return keys, nil
	}
	if err != nil {
		return nil, err
	}

	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, de.Name()))
		if err != nil {
			continue
		}
		text := strings.TrimSpace(string(data))
		if entry, ok := keybundle.ParseArmored(text); ok {
			keys[entry.KeyID] = entry
			continue
		}
		if entry, ok := keybundle.ParseKeyval(data); ok {
			keys[entry.KeyID] = entry
		}
	}
	return keys, nil
}
