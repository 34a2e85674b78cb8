package requests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/certifypro/certportal/internal/middleware"
	"github.com/certifypro/certportal/internal/platform"
	"github.com/certifypro/certportal/internal/workflow"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

type stubRequestAPI struct {
	reqs []platform.CertificateRequest
	err  error

	created  *platform.CreateRequestInput
	approved string
	rejected string
	reason   string
}

func (s *stubRequestAPI) MyRequests(ctx context.Context, creds platform.Credentials) ([]platform.CertificateRequest, error) {
	return s.reqs, s.err
}

func (s *stubRequestAPI) PendingRequests(ctx context.Context, creds platform.Credentials) ([]platform.CertificateRequest, error) {
	return s.reqs, s.err
}

func (s *stubRequestAPI) AllRequests(ctx context.Context, creds platform.Credentials) ([]platform.CertificateRequest, error) {
	return s.reqs, s.err
}

func (s *stubRequestAPI) CreateRequest(ctx context.Context, creds platform.Credentials, input platform.CreateRequestInput) (*platform.CertificateRequest, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = &input
	return &platform.CertificateRequest{ID: "r-1", Status: platform.RequestPending, Skills: input.Skills}, nil
}

func (s *stubRequestAPI) ApproveRequest(ctx context.Context, creds platform.Credentials, requestID string, input platform.ApprovalInput) (*platform.CertificateRequest, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.approved = requestID
	return &platform.CertificateRequest{ID: requestID, Status: platform.RequestApproved}, nil
}

func (s *stubRequestAPI) RejectRequest(ctx context.Context, creds platform.Credentials, requestID, reason string) (*platform.CertificateRequest, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.rejected = requestID
	s.reason = reason
	return &platform.CertificateRequest{ID: requestID, Status: platform.RequestRejected, RejectionReason: reason}, nil
}

func asUser(role platform.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserKey, &platform.User{ID: "u-1", Username: "alice", Role: role})
		c.Set(middleware.CredsKey, platform.Credentials{Token: "tok"})
		c.Next()
	}
}

func newTestRouter(api *stubRequestAPI) *gin.Engine {
	h := NewHandler(workflow.NewTracker(api), api, nil)
	r := gin.New()
	r.POST("/portal/requests", asUser(platform.RoleIndividual), h.Submit)
	r.GET("/portal/requests", asUser(platform.RoleAdmin), h.All)
	r.GET("/portal/requests/mine", asUser(platform.RoleIndividual), h.Mine)
	r.GET("/portal/requests/pending", asUser(platform.RoleIssuer), h.Pending)
	r.POST("/portal/requests/:id/approve", asUser(platform.RoleIssuer), h.Approve)
	r.POST("/portal/requests/:id/reject", asUser(platform.RoleIssuer), h.Reject)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
	return w, env
}

// ---------------------------------------------------------------------------
// Submit
// ---------------------------------------------------------------------------

func TestSubmit(t *testing.T) {
	api := &stubRequestAPI{}
	r := newTestRouter(api)

	w, env := do(t, r, http.MethodPost, "/portal/requests",
		`{"issuerUsername":"acme","requestMessage":"please","skills":["go","sql"]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if env["message"] != "Request submitted" {
		t.Errorf("message = %v", env["message"])
	}
	if api.created == nil || api.created.IssuerUsername != "acme" {
		t.Errorf("create input not forwarded: %+v", api.created)
	}
}

func TestSubmit_PreconditionsRejectedLocally(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no issuer", `{"requestMessage":"please","skills":["go"]}`},
		{"no skills", `{"issuerUsername":"acme","skills":[]}`},
		{"blank skills only", `{"issuerUsername":"acme","skills":["  ",""]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &stubRequestAPI{}
			r := newTestRouter(api)

			w, env := do(t, r, http.MethodPost, "/portal/requests", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if env["success"] != false {
				t.Error("success = true")
			}
			if api.created != nil {
				t.Error("request reached the platform despite failed precondition")
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Listings
// ---------------------------------------------------------------------------

func TestMine(t *testing.T) {
	api := &stubRequestAPI{reqs: []platform.CertificateRequest{
		{ID: "r-1", Status: platform.RequestPending},
		{ID: "r-2", Status: platform.RequestRejected, RejectionReason: "insufficient evidence"},
	}}
	r := newTestRouter(api)

	w, env := do(t, r, http.MethodGet, "/portal/requests/mine", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	reqs := env["data"].(map[string]any)["requests"].([]any)
	if len(reqs) != 2 {
		t.Errorf("requests = %d, want 2", len(reqs))
	}
}

func TestPending_PlatformDown(t *testing.T) {
	api := &stubRequestAPI{err: platform.NewAPIError(0, "platform unreachable", platform.ErrUnavailable)}
	r := newTestRouter(api)

	w, _ := do(t, r, http.MethodGet, "/portal/requests/pending", "")
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Approve / Reject
// ---------------------------------------------------------------------------

func TestApprove(t *testing.T) {
	api := &stubRequestAPI{}
	r := newTestRouter(api)

	w, env := do(t, r, http.MethodPost, "/portal/requests/r-1/approve",
		`{"certificateName":"Go Fundamentals","issuedDate":"2025-01-15"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if env["message"] != "Request approved" {
		t.Errorf("message = %v", env["message"])
	}
	if api.approved != "r-1" {
		t.Errorf("approved id = %q", api.approved)
	}
}

func TestApprove_ExpiryBeforeIssueRejected(t *testing.T) {
	api := &stubRequestAPI{}
	r := newTestRouter(api)

	w, _ := do(t, r, http.MethodPost, "/portal/requests/r-1/approve",
		`{"certificateName":"Go Fundamentals","issuedDate":"2025-01-15","expiryDate":"2024-12-31"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if api.approved != "" {
		t.Error("approval reached the platform")
	}
}

func TestApprove_AlreadyDecidedIsConflict(t *testing.T) {
	api := &stubRequestAPI{err: platform.NewAPIError(409, "Request already processed", platform.ErrConflict)}
	r := newTestRouter(api)

	w, env := do(t, r, http.MethodPost, "/portal/requests/r-1/approve",
		`{"certificateName":"Go Fundamentals","issuedDate":"2025-01-15"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	if env["message"] != "Request already processed" {
		t.Errorf("message = %v", env["message"])
	}
}

func TestReject(t *testing.T) {
	api := &stubRequestAPI{}
	r := newTestRouter(api)

	w, _ := do(t, r, http.MethodPost, "/portal/requests/r-1/reject",
		`{"rejectionReason":"insufficient evidence"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if api.rejected != "r-1" || api.reason != "insufficient evidence" {
		t.Errorf("reject call = (%q, %q)", api.rejected, api.reason)
	}
}

func TestReject_RequiresReason(t *testing.T) {
	api := &stubRequestAPI{}
	r := newTestRouter(api)

	w, _ := do(t, r, http.MethodPost, "/portal/requests/r-1/reject", `{"rejectionReason":"  "}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if api.rejected != "" {
		t.Error("rejection reached the platform")
	}
}
