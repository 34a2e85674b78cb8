// Package workflow tracks the certificate-request lifecycle as the portal
// drives it: submission by an individual, then exactly one approve or reject
// decision by the target issuer. Terminal states are immutable; the platform
// enforces that and this package surfaces the conflict instead of masking it.
package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/certifypro/certportal/internal/platform"
)

// PreconditionError reports input rejected locally, before any network call.
// It is deliberately a distinct type from the platform taxonomy so callers
// can tell "the portal refused to send this" apart from "the platform
// rejected it".
type PreconditionError struct {
	Field  string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// RequestAPI is the slice of the platform client the tracker depends on.
type RequestAPI interface {
	CreateRequest(ctx context.Context, creds platform.Credentials, input platform.CreateRequestInput) (*platform.CertificateRequest, error)
	ApproveRequest(ctx context.Context, creds platform.Credentials, requestID string, input platform.ApprovalInput) (*platform.CertificateRequest, error)
	RejectRequest(ctx context.Context, creds platform.Credentials, requestID, reason string) (*platform.CertificateRequest, error)
}

// Tracker exposes the legal transitions of a certificate request.
type Tracker struct {
	api RequestAPI
}

// NewTracker builds a Tracker over the given platform operations.
func NewTracker(api RequestAPI) *Tracker {
	return &Tracker{api: api}
}

// Submit creates a new request after checking the portal-side preconditions:
// a target issuer and a non-empty skills set. An empty skills list is
// rejected here, before submission, which is a different failure from the platform's
// own validation errors.
func (t *Tracker) Submit(ctx context.Context, creds platform.Credentials, input platform.CreateRequestInput) (*platform.CertificateRequest, error) {
	if strings.TrimSpace(input.IssuerUsername) == "" {
		return nil, &PreconditionError{Field: "issuerUsername", Reason: "an issuer must be selected"}
	}
	if len(nonBlank(input.Skills)) == 0 {
		return nil, &PreconditionError{Field: "skills", Reason: "at least one skill is required"}
	}
	input.Skills = nonBlank(input.Skills)
	return t.api.CreateRequest(ctx, creds, input)
}

// Approve transitions a pending request to APPROVED. Preconditions: a
// non-empty certificate name and a set issued date; an expiry date, when
// present, must not precede the issued date. On success the platform has
// minted a new certificate; the caller re-fetches the issued listing to see
// it; the tracker never fabricates the record locally.
//
// Approving a request that is already terminal fails with
// platform.ErrConflict. Success must be confirmed from the returned request,
// never assumed.
func (t *Tracker) Approve(ctx context.Context, creds platform.Credentials, requestID string, input platform.ApprovalInput) (*platform.CertificateRequest, error) {
	if strings.TrimSpace(requestID) == "" {
		return nil, &PreconditionError{Field: "requestId", Reason: "request id is required"}
	}
	if strings.TrimSpace(input.CertificateName) == "" {
		return nil, &PreconditionError{Field: "certificateName", Reason: "certificate name is required"}
	}
	if input.IssuedDate.IsZero() {
		return nil, &PreconditionError{Field: "issuedDate", Reason: "issued date is required"}
	}
	if input.ExpiryDate != nil && !input.ExpiryDate.IsZero() && input.ExpiryDate.Before(input.IssuedDate) {
		return nil, &PreconditionError{Field: "expiryDate", Reason: "expiry date cannot precede issued date"}
	}
	return t.api.ApproveRequest(ctx, creds, requestID, input)
}

// Reject transitions a pending request to REJECTED with the supplied reason.
// Precondition: the reason must be non-empty, since a rejection without an
// explanation is never sent. Rejecting an already-terminal request fails
// with platform.ErrConflict.
func (t *Tracker) Reject(ctx context.Context, creds platform.Credentials, requestID, reason string) (*platform.CertificateRequest, error) {
	if strings.TrimSpace(requestID) == "" {
		return nil, &PreconditionError{Field: "requestId", Reason: "request id is required"}
	}
	if strings.TrimSpace(reason) == "" {
		return nil, &PreconditionError{Field: "rejectionReason", Reason: "a rejection reason is required"}
	}
	return t.api.RejectRequest(ctx, creds, requestID, reason)
}

// nonBlank drops empty and whitespace-only entries, preserving order.
func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
