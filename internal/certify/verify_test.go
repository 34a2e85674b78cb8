package certify

import (
	"context"
	"testing"

	"github.com/certifypro/certportal/internal/platform"
)

// stubLookup returns a fixed record or error and counts calls.
type stubLookup struct {
	cert  *platform.Certificate
	err   error
	calls int
}

func (s *stubLookup) VerifyCertificate(ctx context.Context, verificationID string) (*platform.Certificate, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.cert, nil
}

func record(status platform.CertificateStatus) *platform.Certificate {
	return &platform.Certificate{
		ID:             "11111111-1111-1111-1111-111111111111",
		VerificationID: "CERT-ABC123",
		Name:           "Go Fundamentals",
		Status:         status,
		HolderUsername: "alice",
		IssuerName:     "Acme Academy",
		IssuedDate:     platform.NewDate(2025, 1, 15),
	}
}

// ---------------------------------------------------------------------------
// Verdict classification
// ---------------------------------------------------------------------------

func TestVerify_ActiveIsValid(t *testing.T) {
	lookup := &stubLookup{cert: record(platform.StatusActive)}
	result := NewVerifier(lookup).Verify(context.Background(), "CERT-ABC123")

	if !result.Valid {
		t.Fatal("Valid = false for ACTIVE record, want true")
	}
	if result.Certificate == nil || result.Certificate.Name != "Go Fundamentals" {
		t.Error("result does not carry the full record")
	}
	if result.Reason != "" {
		t.Errorf("Reason = %q for valid result, want empty", result.Reason)
	}
}

func TestVerify_NonActiveStatusesAreInvalidWithStatusReason(t *testing.T) {
	tests := []struct {
		status platform.CertificateStatus
		reason string
	}{
		{platform.StatusRevoked, "Certificate is REVOKED"},
		{platform.StatusExpired, "Certificate is EXPIRED"},
		{platform.StatusPending, "Certificate is PENDING"},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			lookup := &stubLookup{cert: record(tt.status)}
			result := NewVerifier(lookup).Verify(context.Background(), "CERT-ABC123")

			if result.Valid {
				t.Fatalf("Valid = true for %s record, want false", tt.status)
			}
			if result.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", result.Reason, tt.reason)
			}
			if result.Certificate == nil {
				t.Error("invalid-but-found result should still carry the record")
			}
		})
	}
}

func TestVerify_NotFoundCollapsesToGenericReason(t *testing.T) {
	lookup := &stubLookup{err: platform.NewAPIError(404, "Certificate not found", platform.ErrNotFound)}
	result := NewVerifier(lookup).Verify(context.Background(), "CERT-NOPE")

	if result.Valid {
		t.Fatal("Valid = true for missing record")
	}
	if result.Reason != ReasonNotFound {
		t.Errorf("Reason = %q, want %q", result.Reason, ReasonNotFound)
	}
	if result.Certificate != nil {
		t.Error("missing record should not carry a certificate")
	}
}

func TestVerify_TransportFailureDegradesNotPanics(t *testing.T) {
	lookup := &stubLookup{err: platform.NewAPIError(0, "platform unreachable", platform.ErrUnavailable)}
	result := NewVerifier(lookup).Verify(context.Background(), "CERT-ABC123")

	if result.Valid {
		t.Fatal("Valid = true on transport failure")
	}
	if result.Reason != ReasonNotFound {
		t.Errorf("Reason = %q, want %q", result.Reason, ReasonNotFound)
	}
}

// ---------------------------------------------------------------------------
// Input handling and call discipline
// ---------------------------------------------------------------------------

func TestVerify_BlankIDMakesNoNetworkCall(t *testing.T) {
	for _, id := range []string{"", "   ", "\t"} {
		lookup := &stubLookup{cert: record(platform.StatusActive)}
		result := NewVerifier(lookup).Verify(context.Background(), id)

		if result.Valid {
			t.Errorf("Verify(%q) valid, want invalid", id)
		}
		if lookup.calls != 0 {
			t.Errorf("Verify(%q) made %d lookups, want 0", id, lookup.calls)
		}
	}
}

func TestVerify_ExactlyOneLookupPerAttempt(t *testing.T) {
	lookup := &stubLookup{cert: record(platform.StatusActive)}
	v := NewVerifier(lookup)

	v.Verify(context.Background(), "CERT-ABC123")
	if lookup.calls != 1 {
		t.Fatalf("lookup calls = %d after one attempt, want 1", lookup.calls)
	}
}

func TestVerify_RepeatedAttemptsYieldIdenticalResults(t *testing.T) {
	lookup := &stubLookup{cert: record(platform.StatusExpired)}
	v := NewVerifier(lookup)

	first := v.Verify(context.Background(), "CERT-ABC123")
	second := v.Verify(context.Background(), "CERT-ABC123")

	if first.Valid != second.Valid || first.Reason != second.Reason {
		t.Errorf("results differ across identical attempts: %+v vs %+v", first, second)
	}
	if lookup.calls != 2 {
		t.Errorf("lookup calls = %d, want 2 (one per attempt, no caching)", lookup.calls)
	}
}
