// Package command implements the Command Aligner (C3): a non-fatal,
// informational comparison between a step's expected and recorded
// command vectors.
package command

import (
	"github.com/sirupsen/logrus"

	"github.com/gzhole/intoto-verify/internal/redact"
)

// Align compares expected and actual element-wise and logs a warning
// on any mismatch. It never fails: command mismatch is policy
// information, not a security failure at this layer (§4.3). Command
// vectors are redacted before logging: a recorded command can
// incidentally carry a credential passed on the command line.
func Align(log *logrus.Logger, step string, expected, actual []string) {
	if equalVectors(expected, actual) {
		return
	}
	if log == nil {
		return
	}
	log.WithFields(logrus.Fields{
		"step":     step,
		"expected": redact.RedactArgs(expected),
		"actual":   redact.RedactArgs(actual),
	}).Warn("recorded command does not match expected command")
}

func equalVectors(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
