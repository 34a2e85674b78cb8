// Package requests exposes the certificate-request workflow endpoints:
// submission by individuals, the pending queue and decisions for issuers, and
// the full listing for admins.
package requests

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/certifypro/certportal/internal/api/respond"
	"github.com/certifypro/certportal/internal/audit"
	"github.com/certifypro/certportal/internal/middleware"
	"github.com/certifypro/certportal/internal/platform"
	"github.com/certifypro/certportal/internal/workflow"
)

// ListAPI is the slice of the platform client serving the read endpoints; the
// transitions go through the workflow tracker so its preconditions apply.
type ListAPI interface {
	MyRequests(ctx context.Context, creds platform.Credentials) ([]platform.CertificateRequest, error)
	PendingRequests(ctx context.Context, creds platform.Credentials) ([]platform.CertificateRequest, error)
	AllRequests(ctx context.Context, creds platform.Credentials) ([]platform.CertificateRequest, error)
}

// Handler serves the request-workflow endpoints.
type Handler struct {
	tracker  *workflow.Tracker
	api      ListAPI
	recorder *audit.Recorder
}

// NewHandler wires the request endpoints.
func NewHandler(tracker *workflow.Tracker, api ListAPI, recorder *audit.Recorder) *Handler {
	return &Handler{tracker: tracker, api: api, recorder: recorder}
}

// Submit handles POST /portal/requests for individuals.
func (h *Handler) Submit(c *gin.Context) {
	var input platform.CreateRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respond.Fail(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	req, err := h.tracker.Submit(c.Request.Context(), middleware.Credentials(c), input)
	if err != nil {
		respond.Error(c, err, "Could not submit request")
		return
	}

	h.record(c, audit.ActionRequestSubmit, req.ID)
	respond.OK(c, http.StatusCreated, "Request submitted", gin.H{"request": req})
}

// Mine handles GET /portal/requests/mine.
func (h *Handler) Mine(c *gin.Context) {
	reqs, err := h.api.MyRequests(c.Request.Context(), middleware.Credentials(c))
	if err != nil {
		respond.Error(c, err, "Could not load requests")
		return
	}
	respond.OK(c, http.StatusOK, "", gin.H{"requests": reqs})
}

// Pending handles GET /portal/requests/pending for issuers.
func (h *Handler) Pending(c *gin.Context) {
	reqs, err := h.api.PendingRequests(c.Request.Context(), middleware.Credentials(c))
	if err != nil {
		respond.Error(c, err, "Could not load pending requests")
		return
	}
	respond.OK(c, http.StatusOK, "", gin.H{"requests": reqs})
}

// All handles GET /portal/requests for admins.
func (h *Handler) All(c *gin.Context) {
	reqs, err := h.api.AllRequests(c.Request.Context(), middleware.Credentials(c))
	if err != nil {
		respond.Error(c, err, "Could not load requests")
		return
	}
	respond.OK(c, http.StatusOK, "", gin.H{"requests": reqs})
}

// Approve handles POST /portal/requests/:id/approve. A request already
// decided comes back as 409; the caller sees the conflict rather than a
// silently repeated approval.
func (h *Handler) Approve(c *gin.Context) {
	var input platform.ApprovalInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respond.Fail(c, http.StatusBadRequest, "invalid approval payload")
		return
	}

	req, err := h.tracker.Approve(c.Request.Context(), middleware.Credentials(c), c.Param("id"), input)
	if err != nil {
		respond.Error(c, err, "Could not approve request")
		return
	}

	h.record(c, audit.ActionRequestApprove, req.ID)
	respond.OK(c, http.StatusOK, "Request approved", gin.H{"request": req})
}

type rejectRequest struct {
	RejectionReason string `json:"rejectionReason"`
}

// Reject handles POST /portal/requests/:id/reject.
func (h *Handler) Reject(c *gin.Context) {
	var body rejectRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.Fail(c, http.StatusBadRequest, "invalid rejection payload")
		return
	}

	req, err := h.tracker.Reject(c.Request.Context(), middleware.Credentials(c), c.Param("id"), body.RejectionReason)
	if err != nil {
		respond.Error(c, err, "Could not reject request")
		return
	}

	h.record(c, audit.ActionRequestReject, req.ID)
	respond.OK(c, http.StatusOK, "Request rejected", gin.H{"request": req})
}

func (h *Handler) record(c *gin.Context, action, requestID string) {
	user := middleware.CurrentUser(c)
	event := audit.Event{
		Action:       action,
		ResourceType: "certificate_request",
		ResourceID:   requestID,
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
