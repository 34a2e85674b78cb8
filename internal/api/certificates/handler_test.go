package certificates

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/certifypro/certportal/internal/certify"
	"github.com/certifypro/certportal/internal/middleware"
	"github.com/certifypro/certportal/internal/platform"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

// validAnchor is "0x" plus 64 hex characters, the shape the platform anchors
// certificates with.
const validAnchor = "0x" + "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

type stubCertAPI struct {
	certs     []platform.Certificate
	cert      *platform.Certificate
	verified  *platform.Certificate
	err       error
	verifyErr error

	issued  *platform.IssueInput
	revoked string
}

func (s *stubCertAPI) MyCertificates(ctx context.Context, creds platform.Credentials) ([]platform.Certificate, error) {
	return s.certs, s.err
}

func (s *stubCertAPI) IssuedCertificates(ctx context.Context, creds platform.Credentials) ([]platform.Certificate, error) {
	return s.certs, s.err
}

func (s *stubCertAPI) GetCertificate(ctx context.Context, creds platform.Credentials, id string) (*platform.Certificate, error) {
	return s.cert, s.err
}

func (s *stubCertAPI) IssueCertificate(ctx context.Context, creds platform.Credentials, input platform.IssueInput) (*platform.Certificate, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.issued = &input
	return s.cert, nil
}

func (s *stubCertAPI) RevokeCertificate(ctx context.Context, creds platform.Credentials, id string) error {
	s.revoked = id
	return s.err
}

func (s *stubCertAPI) VerifyCertificate(ctx context.Context, verificationID string) (*platform.Certificate, error) {
	return s.verified, s.verifyErr
}

func activeCert(id string) platform.Certificate {
	issued, _ := platform.ParseDate("2025-01-15")
	return platform.Certificate{
		ID:             id,
		VerificationID: "ver-" + id,
		Name:           "Go Fundamentals",
		IssuedDate:     issued,
		Status:         platform.StatusActive,
		BlockchainHash: validAnchor,
		HolderUsername: "alice",
		IssuerName:     "Acme Training",
		Skills:         []string{"go"},
	}
}

// asUser injects a resolved session the way SessionAuthMiddleware would.
func asUser(user platform.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserKey, &user)
		c.Set(middleware.CredsKey, platform.Credentials{Token: "tok"})
		c.Next()
	}
}

func newTestRouter(api *stubCertAPI) (*gin.Engine, *Handler) {
	h := NewHandler(api, certify.NewVerifier(api), certify.NewClassifier(30*24*time.Hour), nil)
	r := gin.New()
	issuer := asUser(platform.User{ID: "u-1", Username: "acme", Role: platform.RoleIssuer})
	r.GET("/portal/certificates/mine", issuer, h.Mine)
	r.GET("/portal/certificates/issued", issuer, h.Issued)
	r.GET("/portal/certificates/:id", issuer, h.Get)
	r.POST("/portal/certificates", issuer, h.Issue)
	r.DELETE("/portal/certificates/:id", issuer, h.Revoke)
	r.GET("/verify/:verificationId", h.Verify)
	return r, h
}

func do(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal response %q: %v", w.Body.String(), err)
	}
	return w, env
}

// ---------------------------------------------------------------------------
// Listings
// ---------------------------------------------------------------------------

func TestMine_DecoratesCertificates(t *testing.T) {
	api := &stubCertAPI{certs: []platform.Certificate{activeCert("c-1")}}
	r, _ := newTestRouter(api)

	w, env := do(t, r, http.MethodGet, "/portal/certificates/mine", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	data := env["data"].(map[string]any)
	certs := data["certificates"].([]any)
	if len(certs) != 1 {
		t.Fatalf("certificates = %d, want 1", len(certs))
	}
	cert := certs[0].(map[string]any)
	if cert["displayStatus"] != "Active" {
		t.Errorf("displayStatus = %v", cert["displayStatus"])
	}
	if cert["anchorValid"] != true {
		t.Error("anchorValid = false for a well-formed anchor")
	}
}

func TestMine_MalformedAnchorFlagged(t *testing.T) {
	cert := activeCert("c-1")
	cert.BlockchainHash = "deadbeef"
	api := &stubCertAPI{certs: []platform.Certificate{cert}}
	r, _ := newTestRouter(api)

	_, env := do(t, r, http.MethodGet, "/portal/certificates/mine", "")
	got := env["data"].(map[string]any)["certificates"].([]any)[0].(map[string]any)
	if got["anchorValid"] != false {
		t.Error("anchorValid = true for a malformed anchor")
	}
}

func TestMine_PlatformDownIs502(t *testing.T) {
	api := &stubCertAPI{err: platform.NewAPIError(0, "platform unreachable", platform.ErrUnavailable)}
	r, _ := newTestRouter(api)

	w, env := do(t, r, http.MethodGet, "/portal/certificates/mine", "")
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
	if env["success"] != false {
		t.Error("success = true on error")
	}
}

func TestGet_NotFound(t *testing.T) {
	api := &stubCertAPI{err: platform.NewAPIError(404, "Certificate not found", platform.ErrNotFound)}
	r, _ := newTestRouter(api)

	w, _ := do(t, r, http.MethodGet, "/portal/certificates/c-missing", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Issue / Revoke
// ---------------------------------------------------------------------------

func TestIssue(t *testing.T) {
	cert := activeCert("c-new")
	api := &stubCertAPI{cert: &cert}
	r, _ := newTestRouter(api)

	body := `{"name":"Go Fundamentals","recipientEmail":"alice@example.com","issuedDate":"2025-01-15","skills":["go"]}`
	w, env := do(t, r, http.MethodPost, "/portal/certificates", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if env["message"] != "Certificate issued" {
		t.Errorf("message = %v", env["message"])
	}
	if api.issued == nil || api.issued.RecipientEmail != "alice@example.com" {
		t.Errorf("issue input not forwarded: %+v", api.issued)
	}
}

func TestIssue_InvalidPayload(t *testing.T) {
	r, _ := newTestRouter(&stubCertAPI{})

	w, _ := do(t, r, http.MethodPost, "/portal/certificates", `{"issuedDate":"not-a-date"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRevoke(t *testing.T) {
	api := &stubCertAPI{}
	r, _ := newTestRouter(api)

	w, env := do(t, r, http.MethodDelete, "/portal/certificates/c-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if env["message"] != "Certificate revoked" {
		t.Errorf("message = %v", env["message"])
	}
	if api.revoked != "c-1" {
		t.Errorf("revoked id = %q", api.revoked)
	}
}

func TestRevoke_NoResolvedUserStillSucceeds(t *testing.T) {
	api := &stubCertAPI{}
	_, h := newTestRouter(api)

	// No session middleware: the audit trail gets an anonymous actor instead
	// of the handler dereferencing a missing user.
	r := gin.New()
	r.DELETE("/portal/certificates/:id", h.Revoke)

	w, _ := do(t, r, http.MethodDelete, "/portal/certificates/c-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if api.revoked != "c-1" {
		t.Errorf("revoked id = %q", api.revoked)
	}
}

// ---------------------------------------------------------------------------
// Public verification
// ---------------------------------------------------------------------------

func TestVerify_ActiveCertificate(t *testing.T) {
	cert := activeCert("c-1")
	api := &stubCertAPI{verified: &cert}
	r, _ := newTestRouter(api)

	w, env := do(t, r, http.MethodGet, "/verify/ver-c-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	data := env["data"].(map[string]any)
	if data["isValid"] != true {
		t.Error("isValid = false for an active certificate")
	}
	if data["certificate"] == nil {
		t.Error("certificate missing from a valid verification")
	}
}

func TestVerify_RevokedCertificateStill200(t *testing.T) {
	cert := activeCert("c-1")
	cert.Status = platform.StatusRevoked
	api := &stubCertAPI{verified: &cert}
	r, _ := newTestRouter(api)

	w, env := do(t, r, http.MethodGet, "/verify/ver-c-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even for invalid outcomes", w.Code)
	}
	data := env["data"].(map[string]any)
	if data["isValid"] != false {
		t.Error("isValid = true for a revoked certificate")
	}
	if data["reason"] != "Certificate is REVOKED" {
		t.Errorf("reason = %v", data["reason"])
	}
}

func TestVerify_UnknownIDStill200(t *testing.T) {
	api := &stubCertAPI{verifyErr: platform.NewAPIError(404, "not found", platform.ErrNotFound)}
	r, _ := newTestRouter(api)

	w, env := do(t, r, http.MethodGet, "/verify/nonsense", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	data := env["data"].(map[string]any)
	if data["isValid"] != false {
		t.Error("isValid = true for an unknown id")
	}
	if data["reason"] != "Certificate not found or invalid" {
		t.Errorf("reason = %v", data["reason"])
	}
}
