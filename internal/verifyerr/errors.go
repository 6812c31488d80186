// Package verifyerr defines the closed set of verification-failure
// error kinds from spec.md §7, as sentinel-comparable typed errors.
// No component swallows one of these; the first to occur in
// deterministic evaluation order is the one the orchestrator reports.
package verifyerr

import "fmt"

// Kind identifies which of the seven error classes an Error belongs
// to, so callers can branch on it with errors.As without string
// matching.
type Kind string

const (
	KindRuleVerification Kind = "RuleVerificationError"
	KindSignature        Kind = "SignatureVerificationError"
	KindLayoutExpired    Kind = "LayoutExpiredError"
	KindThreshold        Kind = "ThresholdVerificationError"
	KindBadReturnValue   Kind = "BadReturnValueError"
	KindLinkNotFound     Kind = "LinkNotFoundError"
	KindFormat           Kind = "FormatError"
)

// Error is the single error type used across the verification engine.
// Kind discriminates the class; Component/Message identify where and
// why, for the CLI and audit log to render without re-parsing a
// message string.
type Error struct {
	Kind      Kind
	Component string // e.g. step name, inspection name, keyid
	Message   string
	Wrapped   error
}

func (e *Error) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Component, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is supports errors.Is(err, verifyerr.RuleVerificationKind) style checks
// against the Kind sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message != "" || t.Component != "" {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel values usable with errors.Is(err, verifyerr.RuleVerificationKind).
var (
	RuleVerificationKind = &Error{Kind: KindRuleVerification}
	SignatureKind        = &Error{Kind: KindSignature}
	LayoutExpiredKind    = &Error{Kind: KindLayoutExpired}
	ThresholdKind        = &Error{Kind: KindThreshold}
	BadReturnValueKind   = &Error{Kind: KindBadReturnValue}
	LinkNotFoundKind     = &Error{Kind: KindLinkNotFound}
	FormatKind           = &Error{Kind: KindFormat}
)

func RuleViolation(msg string) error {
	return &Error{Kind: KindRuleVerification, Message: msg}
}

func RuleViolationFor(component, msg string) error {
	return &Error{Kind: KindRuleVerification, Component: component, Message: msg}
}

func Signature(component, msg string) error {
	return &Error{Kind: KindSignature, Component: component, Message: msg}
}

func LayoutExpired(msg string) error {
	return &Error{Kind: KindLayoutExpired, Message: msg}
}

func Threshold(component, msg string) error {
	return &Error{Kind: KindThreshold, Component: component, Message: msg}
}

func BadReturnValue(component, msg string) error {
	return &Error{Kind: KindBadReturnValue, Component: component, Message: msg}
}

func LinkNotFound(component, msg string) error {
	return &Error{Kind: KindLinkNotFound, Component: component, Message: msg}
}

func Format(msg string) error {
	return &Error{Kind: KindFormat, Message: msg}
}

func Formatf(format string, args ...any) error {
	return &Error{Kind: KindFormat, Message: fmt.Sprintf(format, args...)}
}
