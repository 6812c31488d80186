// Package verify implements the Verification Orchestrator (C7): the
// top-level state machine that drives layout signature checking,
// expiry, per-step threshold resolution and rule evaluation,
// sublayout recursion (C6), inspection execution, and summary-link
// synthesis (C9), in the fixed order §4.6 specifies, stopping at the
// first failure.
package verify

import (
	"encoding/hex"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gzhole/intoto-verify/internal/auditlog"
	"github.com/gzhole/intoto-verify/internal/canonicaljson"
	"github.com/gzhole/intoto-verify/internal/command"
	"github.com/gzhole/intoto-verify/internal/inspect"
	"github.com/gzhole/intoto-verify/internal/keybundle"
	"github.com/gzhole/intoto-verify/internal/layoutio"
	"github.com/gzhole/intoto-verify/internal/link"
	"github.com/gzhole/intoto-verify/internal/rules"
	"github.com/gzhole/intoto-verify/internal/signverify"
	"github.com/gzhole/intoto-verify/internal/sublayout"
	"github.com/gzhole/intoto-verify/internal/threshold"
	"github.com/gzhole/intoto-verify/internal/verifyerr"
)

// Orchestrator ties every other C1-C9 component together. It is
// parameterized over link-root directory and verification-key set per
// call, rather than holding either as fixed state, so the same
// instance drives both a top-level run and every recursive sublayout
// expansion (§4.6, §9).
type Orchestrator struct {
	Verifier signverify.Verifier
	Log      *logrus.Logger
	Audit    *auditlog.Logger
}

// New returns an Orchestrator with the stdlib-backed default verifier
// and a logrus logger at its default configuration. Audit is nil
// (disabled) until the caller sets one.
func New() *Orchestrator {
	return &Orchestrator{
		Verifier: signverify.Default{},
		Log:      logrus.New(),
	}
}

func (o *Orchestrator) verifier() signverify.Verifier {
	if o.Verifier != nil {
		return o.Verifier
	}
	return signverify.Default{}
}

// VerifyLayoutFile verifies the layout at layoutPath against links
// discovered under linkDir, trusting a signature by any keyid in
// trustedKeys. This is the entry point for a top-level run; nested
// layouts recurse through verifyLayout directly, since they're handed
// an already-loaded RawMetablock rather than a path.
func (o *Orchestrator) VerifyLayoutFile(layoutPath, linkDir string, trustedKeys map[string]keybundle.Entry) (*link.Link, error) {
	runID := uuid.NewString()
	start := time.Now()
	log := o.logger().WithField("run_id", runID)

	name := filepath.Base(layoutPath)
	raw, err := layoutio.LoadLayoutMetablock(layoutPath)
	if err != nil {
		o.recordAudit(runID, name, start, "load", verifyerr.KindFormat, err)
		return nil, err
	}

	result, err := o.verifyLayout(log, name, raw, linkDir, trustedKeys, 0)
	o.recordOutcome(runID, name, start, err)
	return result, err
}

// verifyLayout is the recursive core (C6/C7 share this): verify raw's
// signatures against trustedKeys, check expiry, resolve every step's
// threshold, expand sublayout steps, evaluate rules, run inspections,
// and synthesize a summary link.
func (o *Orchestrator) verifyLayout(log *logrus.Entry, name string, raw *layoutio.RawMetablock, linkDir string, trustedKeys map[string]keybundle.Entry, depth int) (*link.Link, error) {
	if depth > sublayout.MaxDepth {
		return nil, verifyerr.Format("sublayout nesting exceeds max depth")
	}

	if err := o.verifySignatures(raw, trustedKeys); err != nil {
		return nil, err
	}

	layoutObj, err := raw.AsLayout()
	if err != nil {
		return nil, err
	}

	if time.Now().UTC().After(layoutObj.Expires) {
		return nil, verifyerr.LayoutExpired("layout " + name + " expired at " + layoutObj.Expires.Format(time.RFC3339))
	}

	chain := NewChainDict()

	for _, step := range layoutObj.Steps {
		stepLog := log.WithField("step", step.Name)

		loaded, err := layoutio.LoadStepMetablocks(linkDir, step.Name)
		if err != nil {
			return nil, err
		}

		canonicalRaw, err := threshold.Resolve(step, layoutObj.Keys, loaded, o.verifier())
		if err != nil {
			return nil, err
		}

		typ, err := canonicalRaw.Type()
		if err != nil {
			return nil, verifyerr.Format("step " + step.Name + ": " + err.Error())
		}

		var stepLink *link.Link
		if typ == "layout" {
			stepLog.Debug("step resolved to a sublayout, recursing")
			stepLink, err = o.expandSublayout(log, step, canonicalRaw, linkDir, layoutObj.Keys, depth)
		} else {
			stepLink, err = canonicalRaw.AsLink()
		}
		if err != nil {
			return nil, err
		}

		chain.Set(step.Name, stepLink)

		command.Align(o.Log, step.Name, step.ExpectedCommand, stepLink.Command)

		if _, err := rules.RunList(step.ExpectedMaterial, rules.SourceMaterials, stepLink.Materials, stepLink.Products, chain); err != nil {
			return nil, err
		}
		if _, err := rules.RunList(step.ExpectedProduct, rules.SourceProducts, stepLink.Materials, stepLink.Products, chain); err != nil {
			return nil, err
		}
	}

	for _, insp := range layoutObj.Inspect {
		inspLink, err := inspect.Run(insp.Name, insp.Run)
		if err != nil {
			return nil, err
		}
		chain.Set(insp.Name, inspLink)

		if _, err := rules.RunList(insp.ExpectedMaterial, rules.SourceMaterials, inspLink.Materials, inspLink.Products, chain); err != nil {
			return nil, err
		}
		if _, err := rules.RunList(insp.ExpectedProduct, rules.SourceProducts, inspLink.Materials, inspLink.Products, chain); err != nil {
			return nil, err
		}
	}

	return BuildSummary(name, layoutObj.Steps, chain)
}

// expandSublayout implements C6: the canonical metablock resolved for
// a step turned out to be a signed layout rather than a link. Recurse
// into it, scoping link discovery to the parent step's conventional
// subdirectory, and collapse the result into one Link the parent
// treats exactly like an ordinary step's evidence.
func (o *Orchestrator) expandSublayout(log *logrus.Entry, step layoutio.Step, raw *layoutio.RawMetablock, parentLinkDir string, parentKeys map[string]keybundle.Entry, depth int) (*link.Link, error) {
	if len(raw.Signatures) == 0 {
		return nil, verifyerr.Format("sublayout for step " + step.Name + " carries no signatures")
	}
	shortID := layoutio.ShortKeyID(raw.Signatures[0].KeyID)
	nestedDir := sublayout.LinkDir(parentLinkDir, step.Name, shortID)

	// A sublayout is trusted by the same authorization rule as an
	// ordinary link for this step: the set of pubkeys (and their
	// expanded subkeys) the parent step names.
	authorized := keybundle.ExpandAuthorized(step.PubKeys, parentKeys)
	nestedTrust := map[string]keybundle.Entry{}
	for id, entry := range parentKeys {
		if authorized[id] {
			nestedTrust[id] = entry
		}
	}

	return o.verifyLayout(log.WithField("sublayout_of", step.Name), step.Name, raw, nestedDir, nestedTrust, depth+1)
}

// verifySignatures requires at least one signature in raw, by a keyid
// present in trustedKeys, that validates against raw's canonicalized
// Signed bytes. Zero trusted keys is always a SignatureVerificationError,
// never vacuously true (§4.6).
func (o *Orchestrator) verifySignatures(raw *layoutio.RawMetablock, trustedKeys map[string]keybundle.Entry) error {
	if len(trustedKeys) == 0 {
		return verifyerr.Signature("layout", "no verification keys supplied")
	}

	canonical, err := canonicaljson.CanonicalizeRaw(raw.Signed)
	if err != nil {
		return verifyerr.Format("layout: canonicalize: " + err.Error())
	}

	for _, sig := range raw.Signatures {
		keyMat, ok := keybundle.Resolve(sig.KeyID, trustedKeys)
		if !ok {
			continue
		}
		sigBytes, err := hex.DecodeString(sig.Sig)
		if err != nil {
			continue
		}
		valid, err := o.verifier().Verify(keyMat, canonical, sigBytes)
		if err == nil && valid {
			return nil
		}
	}

	return verifyerr.Signature("layout", "no valid signature by a supplied verification key")
}

func (o *Orchestrator) logger() *logrus.Logger {
	if o.Log != nil {
		return o.Log
	}
	return logrus.New()
}

func (o *Orchestrator) recordOutcome(runID, name string, start time.Time, err error) {
	if o.Audit == nil {
		return
	}
	if err == nil {
		o.Audit.Record(auditlog.Event{
			Timestamp:  auditlog.Now().Format(time.RFC3339),
			RunID:      runID,
			Layout:     name,
			Outcome:    "accept",
			DurationMS: time.Since(start).Milliseconds(),
		})
		return
	}
	kind := ""
	detail := err.Error()
	if verr, ok := err.(*verifyerr.Error); ok {
		kind = string(verr.Kind)
		detail = verr.Message
	}
	o.Audit.Record(auditlog.Event{
		Timestamp:   auditlog.Now().Format(time.RFC3339),
		RunID:       runID,
		Layout:      name,
		Outcome:     "reject",
		ErrorKind:   kind,
		ErrorDetail: detail,
		DurationMS:  time.Since(start).Milliseconds(),
	})
}

func (o *Orchestrator) recordAudit(runID, name string, start time.Time, stage string, kind verifyerr.Kind, err error) {
	if o.Audit == nil {
		return
	}
	o.Audit.Record(auditlog.Event{
		Timestamp:   auditlog.Now().Format(time.RFC3339),
		RunID:       runID,
		Layout:      name,
		Outcome:     "reject",
		FailedStage: stage,
		ErrorKind:   string(kind),
		ErrorDetail: err.Error(),
		DurationMS:  time.Since(start).Milliseconds(),
	})
}
