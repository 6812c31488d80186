// Package inspect implements the Inspection Runner (C5): executes an
// inspection's command in the verifier's own working directory,
// hashing the directory before and after to synthesize a Link.
//
// Adapted from the teacher's sandbox.Runner.Apply, which already runs
// a command with cmd.Dir set to the real working directory rather than
// a sandboxed copy — exactly the execution model §4.5 requires.
// Runner.Run's copy-to-tempdir behavior is not carried over: an
// inspection must observe (and be observed hashing) the verifier's
// actual CWD, not a snapshot of it.
package inspect

import (
	"bytes"
	"os"
	"os/exec"
	"strconv"

	"github.com/gzhole/intoto-verify/internal/artifact"
	"github.com/gzhole/intoto-verify/internal/link"
	"github.com/gzhole/intoto-verify/internal/verifyerr"
)

// Run executes inspection.Run in the verifier's current working
// directory and synthesizes a Link from the before/after snapshot.
// ARTIFACT_BASE_PATH is deliberately ignored here (§4.5, §9): an
// inspection always hashes the real process CWD.
func Run(name string, runCmd []string) (*link.Link, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	before, err := artifact.HashDir(cwd)
	if err != nil {
		return nil, err
	}

	if len(runCmd) == 0 {
		return nil, verifyerr.Format("inspection " + name + ": empty run command")
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(runCmd[0], runCmd[1:]...)
	cmd.Dir = cwd
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, runErr // failed to even start the subprocess
		}
	}

	after, err := artifact.HashDir(cwd)
	if err != nil {
		return nil, err
	}

	if exitCode != 0 {
		return nil, verifyerr.BadReturnValue(name, runCmd[0]+" exited with status "+strconv.Itoa(exitCode))
	}

	return &link.Link{
		Type:      "link",
		Name:      name,
		Materials: before,
		Products:  after,
		Command:   runCmd,
		Byproducts: map[string]any{
			"return-value": 0,
			"stdout":       stdout.String(),
			"stderr":       stderr.String(),
		},
	}, nil
}

