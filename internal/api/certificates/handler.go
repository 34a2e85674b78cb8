// Package certificates exposes the portal's certificate endpoints: the
// signed-in listings and issuance/revocation for issuers, plus the public
// verification endpoint that needs no session.
package certificates

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/certifypro/certportal/internal/api/respond"
	"github.com/certifypro/certportal/internal/audit"
	"github.com/certifypro/certportal/internal/certify"
	"github.com/certifypro/certportal/internal/middleware"
	"github.com/certifypro/certportal/internal/platform"
	"github.com/certifypro/certportal/pkg/anchor"
)

// CertificateAPI is the slice of the platform client these endpoints use.
type CertificateAPI interface {
	MyCertificates(ctx context.Context, creds platform.Credentials) ([]platform.Certificate, error)
	IssuedCertificates(ctx context.Context, creds platform.Credentials) ([]platform.Certificate, error)
	GetCertificate(ctx context.Context, creds platform.Credentials, id string) (*platform.Certificate, error)
	IssueCertificate(ctx context.Context, creds platform.Credentials, input platform.IssueInput) (*platform.Certificate, error)
	RevokeCertificate(ctx context.Context, creds platform.Credentials, id string) error
}

// Handler serves the certificate endpoints.
type Handler struct {
	api        CertificateAPI
	verifier   *certify.Verifier
	classifier *certify.Classifier
	recorder   *audit.Recorder
}

// NewHandler wires the certificate endpoints.
func NewHandler(api CertificateAPI, verifier *certify.Verifier, classifier *certify.Classifier, recorder *audit.Recorder) *Handler {
	return &Handler{api: api, verifier: verifier, classifier: classifier, recorder: recorder}
}

// view decorates a platform record with the portal's advisory display fields.
type view struct {
	platform.Certificate
	DisplayStatus string `json:"displayStatus"`
	AnchorValid   bool   `json:"anchorValid"`
}

func (h *Handler) decorate(cert platform.Certificate, now time.Time) view {
	return view{
		Certificate:   cert,
		DisplayStatus: h.classifier.DisplayStatus(&cert, now),
		AnchorValid:   anchor.WellFormed(cert.BlockchainHash),
	}
}

func (h *Handler) decorateAll(certs []platform.Certificate) []view {
	now := time.Now()
	views := make([]view, 0, len(certs))
	for _, cert := range certs {
		views = append(views, h.decorate(cert, now))
	}
	return views
}

// Mine handles GET /portal/certificates/mine.
func (h *Handler) Mine(c *gin.Context) {
	certs, err := h.api.MyCertificates(c.Request.Context(), middleware.Credentials(c))
	if err != nil {
		respond.Error(c, err, "Could not load certificates")
		return
	}
	respond.OK(c, http.StatusOK, "", gin.H{"certificates": h.decorateAll(certs)})
}

// Issued handles GET /portal/certificates/issued for issuers.
func (h *Handler) Issued(c *gin.Context) {
	certs, err := h.api.IssuedCertificates(c.Request.Context(), middleware.Credentials(c))
	if err != nil {
		respond.Error(c, err, "Could not load issued certificates")
		return
	}
	respond.OK(c, http.StatusOK, "", gin.H{"certificates": h.decorateAll(certs)})
}

// Get handles GET /portal/certificates/:id.
func (h *Handler) Get(c *gin.Context) {
	cert, err := h.api.GetCertificate(c.Request.Context(), middleware.Credentials(c), c.Param("id"))
	if err != nil {
		respond.Error(c, err, "Certificate not found")
		return
	}
	respond.OK(c, http.StatusOK, "", gin.H{"certificate": h.decorate(*cert, time.Now())})
}

// Issue handles POST /portal/certificates for issuers.
func (h *Handler) Issue(c *gin.Context) {
	var input platform.IssueInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respond.Fail(c, http.StatusBadRequest, "invalid certificate payload")
		return
	}

	cert, err := h.api.IssueCertificate(c.Request.Context(), middleware.Credentials(c), input)
	if err != nil {
		respond.Error(c, err, "Could not issue certificate")
		return
	}

	h.record(c, audit.ActionIssue, cert.ID)
	respond.OK(c, http.StatusCreated, "Certificate issued", gin.H{"certificate": h.decorate(*cert, time.Now())})
}

// Revoke handles DELETE /portal/certificates/:id.
func (h *Handler) Revoke(c *gin.Context) {
	id := c.Param("id")
	if err := h.api.RevokeCertificate(c.Request.Context(), middleware.Credentials(c), id); err != nil {
		respond.Error(c, err, "Could not revoke certificate")
		return
	}

	h.record(c, audit.ActionRevoke, id)
	respond.OK(c, http.StatusOK, "Certificate revoked", nil)
}

func (h *Handler) record(c *gin.Context, action, certID string) {
	user := middleware.CurrentUser(c)
	event := audit.Event{
		Action:       action,
		ResourceType: "certificate",
		ResourceID:   certID,
		RequestID:    c.GetString(middleware.RequestIDKey),
		IPAddress:    c.ClientIP(),
		Success:      true,
	}
	if user != nil {
		event.Actor = user.Username
		event.ActorRole = user.Role.String()
	}
	h.recorder.Record(c.Request.Context(), event)
}

// Verify handles GET /verify/:verificationId, the public endpoint behind a
// QR code, reachable without a session. The response always succeeds at the
// HTTP level; validity is carried in the body so scanners can render either
// outcome from a 200.
func (h *Handler) Verify(c *gin.Context) {
	result := h.verifier.Verify(c.Request.Context(), c.Param("verificationId"))

	data := gin.H{"isValid": result.Valid}
	if result.Certificate != nil {
		data["certificate"] = h.decorate(*result.Certificate, time.Now())
	}
	if result.Reason != "" {
		data["reason"] = result.Reason
	}
	respond.OK(c, http.StatusOK, "", data)
}
