// Package certify holds the portal-side certificate logic: classifying a
// fetched record into a verification verdict, and computing the advisory
// display status. The platform's status field stays authoritative throughout;
// nothing in this package mutates or second-guesses it.
package certify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/certifypro/certportal/internal/platform"
	"github.com/certifypro/certportal/internal/telemetry"
)

// ReasonNotFound is the single reason string surfaced for lookups that fail
// for any cause other than a non-ACTIVE record: unknown id, platform error,
// or network failure. Collapsing these hides whether an id exists from
// anonymous callers probing the public endpoint.
const ReasonNotFound = "Certificate not found or invalid"

// Lookup is the one platform call the verifier depends on.
type Lookup interface {
	VerifyCertificate(ctx context.Context, verificationID string) (*platform.Certificate, error)
}

// Result is the outcome of one verification attempt. Valid is true iff the
// platform returned a record whose status is ACTIVE; "exists" is never enough.
// Certificate is set whenever the platform returned a record, including for
// invalid outcomes, so the page can show what was found and why it failed.
type Result struct {
	Valid       bool
	Certificate *platform.Certificate
	Reason      string
}

// Verifier resolves verification ids into verdicts.
type Verifier struct {
	lookup Lookup
}

// NewVerifier builds a Verifier over the given platform lookup.
func NewVerifier(lookup Lookup) *Verifier {
	return &Verifier{lookup: lookup}
}

// Verify performs exactly one lookup for the supplied verification id and
// classifies the outcome. It never returns an error: every failure mode
// degrades to an Invalid result with a human-readable reason. Two calls with
// no intervening platform-state change yield identical results.
func (v *Verifier) Verify(ctx context.Context, verificationID string) Result {
	if strings.TrimSpace(verificationID) == "" {
		telemetry.VerificationAttemptsTotal.WithLabelValues("invalid").Inc()
		return Result{Valid: false, Reason: "Verification ID is required"}
	}

	cert, err := v.lookup.VerifyCertificate(ctx, verificationID)
	if err != nil {
		outcome := "error"
		if errors.Is(err, platform.ErrNotFound) {
			outcome = "not_found"
		}
		telemetry.VerificationAttemptsTotal.WithLabelValues(outcome).Inc()
		return Result{Valid: false, Reason: ReasonNotFound}
	}

	if cert.Status != platform.StatusActive {
		telemetry.VerificationAttemptsTotal.WithLabelValues("invalid").Inc()
		return Result{
			Valid:       false,
			Certificate: cert,
			Reason:      fmt.Sprintf("Certificate is %s", cert.Status),
		}
	}

	telemetry.VerificationAttemptsTotal.WithLabelValues("verified").Inc()
	return Result{Valid: true, Certificate: cert}
}
