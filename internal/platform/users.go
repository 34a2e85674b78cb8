// users.go implements profile management and the per-role dashboard stats
// endpoints.
package platform

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// UpdateProfile applies the supplied profile changes to the authenticated user
// and returns the updated profile.
func (c *Client) UpdateProfile(ctx context.Context, creds Credentials, update ProfileUpdate) (*User, error) {
	var user User
	if err := c.do(ctx, "users.update_profile", http.MethodPut, "/users/profile", &creds, update, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UploadProfilePicture uploads a new avatar image and returns the updated
// profile. The platform stores the image and serves back its URL.
func (c *Client) UploadProfilePicture(ctx context.Context, creds Credentials, fileName string, file io.Reader) (*User, error) {
	if fileName == "" {
		return nil, NewAPIError(0, "file name is required", ErrValidation)
	}
	var user User
	if err := c.doMultipart(ctx, "users.upload_picture", "/users/profile/picture", &creds, "file", fileName, file, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteProfilePicture removes the authenticated user's avatar.
func (c *Client) DeleteProfilePicture(ctx context.Context, creds Credentials) error {
	return c.do(ctx, "users.delete_picture", http.MethodDelete, "/users/profile/picture", &creds, nil, nil)
}

// IssuerStats fetches the issuing-activity summary for the named issuer.
func (c *Client) IssuerStats(ctx context.Context, creds Credentials, username string) (*IssuerStats, error) {
	if username == "" {
		return nil, NewAPIError(0, "username is required", ErrValidation)
	}
	var stats IssuerStats
	path := "/users/" + url.PathEscape(username) + "/issuer-stats"
	if err := c.do(ctx, "users.issuer_stats", http.MethodGet, path, &creds, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// EmployerStats fetches the browsing-activity summary for the named employer.
func (c *Client) EmployerStats(ctx context.Context, creds Credentials, username string) (*EmployerStats, error) {
	if username == "" {
		return nil, NewAPIError(0, "username is required", ErrValidation)
	}
	var stats EmployerStats
	path := "/users/" + url.PathEscape(username) + "/employer-stats"
	if err := c.do(ctx, "users.employer_stats", http.MethodGet, path, &creds, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// AdminStats fetches the platform-wide aggregate statistics. Restricted to
// admin accounts; other roles receive ErrForbidden from the platform.
func (c *Client) AdminStats(ctx context.Context, creds Credentials) (*AdminStats, error) {
	var stats AdminStats
	if err := c.do(ctx, "users.admin_stats", http.MethodGet, "/users/admin/stats", &creds, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
