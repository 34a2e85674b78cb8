// requests.go implements the certificate-request operations: creation by an
// individual, the issuer-facing listings, and the approve/reject transitions.
package platform

import (
	"context"
	"net/http"
	"net/url"
)

// CreateRequest submits a new certificate request to the named issuer.
func (c *Client) CreateRequest(ctx context.Context, creds Credentials, input CreateRequestInput) (*CertificateRequest, error) {
	if input.IssuerUsername == "" {
		return nil, NewAPIError(0, "issuer username is required", ErrValidation)
	}
	var req CertificateRequest
	if err := c.do(ctx, "requests.create", http.MethodPost, "/certificate-requests", &creds, input, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// MyRequests lists the authenticated individual's own requests.
func (c *Client) MyRequests(ctx context.Context, creds Credentials) ([]CertificateRequest, error) {
	var reqs []CertificateRequest
	if err := c.do(ctx, "requests.mine", http.MethodGet, "/certificate-requests/my-requests", &creds, nil, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

// PendingRequests lists the requests awaiting the authenticated issuer's
// decision.
func (c *Client) PendingRequests(ctx context.Context, creds Credentials) ([]CertificateRequest, error) {
	var reqs []CertificateRequest
	if err := c.do(ctx, "requests.pending", http.MethodGet, "/certificate-requests/pending", &creds, nil, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

// AllRequests lists every request addressed to the authenticated issuer,
// including decided ones.
func (c *Client) AllRequests(ctx context.Context, creds Credentials) ([]CertificateRequest, error) {
	var reqs []CertificateRequest
	if err := c.do(ctx, "requests.all", http.MethodGet, "/certificate-requests/all", &creds, nil, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

// ApproveRequest transitions a pending request to APPROVED. The platform
// mints the certificate from input as a side effect; the caller re-fetches
// the issued listing to obtain the new record; it is not returned here.
// Approving an already-terminal request fails with ErrConflict.
func (c *Client) ApproveRequest(ctx context.Context, creds Credentials, requestID string, input ApprovalInput) (*CertificateRequest, error) {
	if requestID == "" {
		return nil, NewAPIError(0, "request id is required", ErrValidation)
	}
	var req CertificateRequest
	path := "/certificate-requests/" + url.PathEscape(requestID) + "/approve"
	if err := c.do(ctx, "requests.approve", http.MethodPost, path, &creds, input, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// RejectRequest transitions a pending request to REJECTED with the supplied
// reason. Rejecting an already-terminal request fails with ErrConflict.
func (c *Client) RejectRequest(ctx context.Context, creds Credentials, requestID, reason string) (*CertificateRequest, error) {
	if requestID == "" {
		return nil, NewAPIError(0, "request id is required", ErrValidation)
	}
	body := map[string]string{"rejectionReason": reason}
	var req CertificateRequest
	path := "/certificate-requests/" + url.PathEscape(requestID) + "/reject"
	if err := c.do(ctx, "requests.reject", http.MethodPost, path, &creds, body, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
