package platform

import (
	"encoding/json"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Date
// ---------------------------------------------------------------------------

func TestDate_ParseAndString(t *testing.T) {
	d, err := ParseDate("2025-01-15")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.String() != "2025-01-15" {
		t.Errorf("String() = %q", d.String())
	}
}

func TestDate_ParseRejectsGarbage(t *testing.T) {
	for _, s := range []string{"15-01-2025", "2025/01/15", "not a date", "2025-13-01"} {
		if _, err := ParseDate(s); err == nil {
			t.Errorf("ParseDate(%q) accepted", s)
		}
	}
}

func TestDate_JSONNullAndEmptyMeanUnset(t *testing.T) {
	var got struct {
		A Date  `json:"a"`
		B Date  `json:"b"`
		C *Date `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":null,"b":"","c":"2025-06-01"}`), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.A.IsZero() || !got.B.IsZero() {
		t.Error("null / empty string did not decode as unset")
	}
	if got.C == nil || got.C.String() != "2025-06-01" {
		t.Errorf("c = %v", got.C)
	}
}

func TestDate_ZeroMarshalsAsNull(t *testing.T) {
	out, err := json.Marshal(struct {
		D Date `json:"d"`
	}{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"d":null}` {
		t.Errorf("marshal = %s", out)
	}
}

func TestDate_Ordering(t *testing.T) {
	early, _ := ParseDate("2025-01-01")
	late, _ := ParseDate("2025-12-31")
	if !early.Before(late) || !late.After(early) {
		t.Error("ordering broken")
	}
	if early.Before(early) || early.After(early) {
		t.Error("a date compares against itself")
	}
}

func TestDateOf_TruncatesClock(t *testing.T) {
	d := DateOf(time.Date(2025, time.March, 7, 23, 59, 58, 0, time.UTC))
	if d.String() != "2025-03-07" {
		t.Errorf("DateOf = %q", d.String())
	}
}

// ---------------------------------------------------------------------------
// Enumerations
// ---------------------------------------------------------------------------

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleIndividual, RoleIssuer, RoleEmployer, RoleAdmin} {
		if !r.Valid() {
			t.Errorf("%s not valid", r)
		}
	}
	if Role("SUPERUSER").Valid() {
		t.Error("unknown role accepted")
	}
}

func TestRequestStatusTerminal(t *testing.T) {
	if RequestPending.Terminal() {
		t.Error("PENDING is terminal")
	}
	if !RequestApproved.Terminal() || !RequestRejected.Terminal() {
		t.Error("decision states not terminal")
	}
}

func TestCertificateExpires(t *testing.T) {
	var cert Certificate
	if cert.Expires() {
		t.Error("no expiry date but Expires() = true")
	}
	d, _ := ParseDate("2026-01-01")
	cert.ExpiryDate = &d
	if !cert.Expires() {
		t.Error("expiry date set but Expires() = false")
	}
}
