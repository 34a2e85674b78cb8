// Package profiles exposes profile management and the role-specific dashboard
// statistics. The stats endpoint dispatches on the signed-in user's role, so
// one route serves every dashboard.
package profiles

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/certifypro/certportal/internal/api/respond"
	"github.com/certifypro/certportal/internal/middleware"
	"github.com/certifypro/certportal/internal/platform"
	"github.com/certifypro/certportal/internal/safego"
)

// ProfileAPI is the slice of the platform client these endpoints use.
type ProfileAPI interface {
	UpdateProfile(ctx context.Context, creds platform.Credentials, update platform.ProfileUpdate) (*platform.User, error)
	UploadProfilePicture(ctx context.Context, creds platform.Credentials, fileName string, file io.Reader) (*platform.User, error)
	DeleteProfilePicture(ctx context.Context, creds platform.Credentials) error
	IssuerStats(ctx context.Context, creds platform.Credentials, username string) (*platform.IssuerStats, error)
	EmployerStats(ctx context.Context, creds platform.Credentials, username string) (*platform.EmployerStats, error)
	AdminStats(ctx context.Context, creds platform.Credentials) (*platform.AdminStats, error)
	MyCertificates(ctx context.Context, creds platform.Credentials) ([]platform.Certificate, error)
	MyRequests(ctx context.Context, creds platform.Credentials) ([]platform.CertificateRequest, error)
}

// Handler serves the profile endpoints.
type Handler struct {
	api ProfileAPI
}

// NewHandler wires the profile endpoints.
func NewHandler(api ProfileAPI) *Handler {
	return &Handler{api: api}
}

// Update handles PUT /portal/profile.
func (h *Handler) Update(c *gin.Context) {
	var update platform.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respond.Fail(c, http.StatusBadRequest, "invalid profile payload")
		return
	}

	user, err := h.api.UpdateProfile(c.Request.Context(), middleware.Credentials(c), update)
	if err != nil {
		respond.Error(c, err, "Could not update profile")
		return
	}
	respond.OK(c, http.StatusOK, "Profile updated", gin.H{"user": user})
}

// UploadPicture handles POST /portal/profile/picture as a multipart upload
// under the "file" field.
func (h *Handler) UploadPicture(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, "a file upload is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		respond.Fail(c, http.StatusBadRequest, "could not read uploaded file")
		return
	}
	defer file.Close()

	user, err := h.api.UploadProfilePicture(c.Request.Context(), middleware.Credentials(c), header.Filename, file)
	if err != nil {
		respond.Error(c, err, "Could not upload profile picture")
		return
	}
	respond.OK(c, http.StatusOK, "Profile picture updated", gin.H{"user": user})
}

// DeletePicture handles DELETE /portal/profile/picture.
func (h *Handler) DeletePicture(c *gin.Context) {
	if err := h.api.DeleteProfilePicture(c.Request.Context(), middleware.Credentials(c)); err != nil {
		respond.Error(c, err, "Could not remove profile picture")
		return
	}
	respond.OK(c, http.StatusOK, "Profile picture removed", nil)
}

// Stats handles GET /portal/stats, dispatching on the caller's role. Every
// role gets an answer; an unknown role is a 403 rather than a guess.
func (h *Handler) Stats(c *gin.Context) {
	user := middleware.CurrentUser(c)
	creds := middleware.Credentials(c)
	ctx := c.Request.Context()

	switch user.Role {
	case platform.RoleIssuer:
		stats, err := h.api.IssuerStats(ctx, creds, user.Username)
		if err != nil {
			respond.Error(c, err, "Could not load issuer statistics")
			return
		}
		respond.OK(c, http.StatusOK, "", gin.H{"role": user.Role, "stats": stats})
	case platform.RoleEmployer:
		stats, err := h.api.EmployerStats(ctx, creds, user.Username)
		if err != nil {
			respond.Error(c, err, "Could not load employer statistics")
			return
		}
		respond.OK(c, http.StatusOK, "", gin.H{"role": user.Role, "stats": stats})
	case platform.RoleAdmin:
		stats, err := h.api.AdminStats(ctx, creds)
		if err != nil {
			respond.Error(c, err, "Could not load admin statistics")
			return
		}
		respond.OK(c, http.StatusOK, "", gin.H{"role": user.Role, "stats": stats})
	case platform.RoleIndividual:
		h.individualStats(c)
	default:
		respond.Fail(c, http.StatusForbidden, "No statistics for this role")
	}
}

// individualStats derives the individual's dashboard numbers from their own
// certificates and requests. The platform has no dedicated stats endpoint for
// individuals, so the two listings are fetched concurrently and counted here.
func (h *Handler) individualStats(c *gin.Context) {
	creds := middleware.Credentials(c)
	ctx := c.Request.Context()

	var (
		wg       sync.WaitGroup
		certs    []platform.Certificate
		reqs     []platform.CertificateRequest
		certsErr error
		reqsErr  error
	)

	// The errors start out as failures and are overwritten by each fetch's
	// result, so a panic recovered inside safego surfaces as an unavailable
	// platform rather than an empty dashboard.
	certsErr = platform.ErrUnavailable
	reqsErr = platform.ErrUnavailable

	wg.Add(2)
	safego.Go(func() {
		defer wg.Done()
		certs, certsErr = h.api.MyCertificates(ctx, creds)
	})
	safego.Go(func() {
		defer wg.Done()
		reqs, reqsErr = h.api.MyRequests(ctx, creds)
	})
	wg.Wait()

	if certsErr != nil {
		respond.Error(c, certsErr, "Could not load statistics")
		return
	}
	if reqsErr != nil {
		respond.Error(c, reqsErr, "Could not load statistics")
		return
	}

	var active, pending int
	for _, cert := range certs {
		if cert.Status == platform.StatusActive {
			active++
		}
	}
	for _, req := range reqs {
		if req.Status == platform.RequestPending {
			pending++
		}
	}

	respond.OK(c, http.StatusOK, "", gin.H{
		"role": platform.RoleIndividual,
		"stats": gin.H{
			"totalCertificates":  len(certs),
			"activeCertificates": active,
			"pendingRequests":    pending,
		},
	})
}
