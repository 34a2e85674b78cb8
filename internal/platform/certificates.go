// certificates.go implements the certificate operations: public verification
// lookup, holder and issuer listings, direct issuance, and revocation.
package platform

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// VerifyCertificate looks up a certificate by its externally shareable
// verification id. This is the public endpoint behind the verification page;
// no credentials are attached. The caller classifies validity from the
// returned record's status; this method reports only whether a record exists.
func (c *Client) VerifyCertificate(ctx context.Context, verificationID string) (*Certificate, error) {
	verificationID = strings.TrimSpace(verificationID)
	if verificationID == "" {
		return nil, NewAPIError(0, "verification id is required", ErrValidation)
	}
	var cert Certificate
	path := "/certificates/verify/" + url.PathEscape(verificationID)
	if err := c.do(ctx, "certificates.verify", http.MethodGet, path, nil, nil, &cert); err != nil {
		return nil, err
	}
	return &cert, nil
}

// GetCertificate fetches a certificate by its internal id.
func (c *Client) GetCertificate(ctx context.Context, creds Credentials, id string) (*Certificate, error) {
	if id == "" {
		return nil, NewAPIError(0, "certificate id is required", ErrValidation)
	}
	var cert Certificate
	path := "/certificates/" + url.PathEscape(id)
	if err := c.do(ctx, "certificates.get", http.MethodGet, path, &creds, nil, &cert); err != nil {
		return nil, err
	}
	return &cert, nil
}

// MyCertificates lists the certificates held by the authenticated individual.
func (c *Client) MyCertificates(ctx context.Context, creds Credentials) ([]Certificate, error) {
	var certs []Certificate
	if err := c.do(ctx, "certificates.mine", http.MethodGet, "/certificates/my-certificates", &creds, nil, &certs); err != nil {
		return nil, err
	}
	return certs, nil
}

// IssuedCertificates lists the certificates minted by the authenticated issuer.
func (c *Client) IssuedCertificates(ctx context.Context, creds Credentials) ([]Certificate, error) {
	var certs []Certificate
	if err := c.do(ctx, "certificates.issued", http.MethodGet, "/certificates/issued", &creds, nil, &certs); err != nil {
		return nil, err
	}
	return certs, nil
}

// IssueCertificate mints a certificate directly for a registered recipient.
// The platform assigns the id, verification id, and anchoring artifacts.
func (c *Client) IssueCertificate(ctx context.Context, creds Credentials, input IssueInput) (*Certificate, error) {
	if input.Name == "" {
		return nil, NewAPIError(0, "certificate name is required", ErrValidation)
	}
	if input.RecipientEmail == "" {
		return nil, NewAPIError(0, "recipient email is required", ErrValidation)
	}
	if input.IssuedDate.IsZero() {
		return nil, NewAPIError(0, "issued date is required", ErrValidation)
	}
	var cert Certificate
	if err := c.do(ctx, "certificates.issue", http.MethodPost, "/certificates/issue", &creds, input, &cert); err != nil {
		return nil, err
	}
	return &cert, nil
}

// RevokeCertificate asks the platform to transition a certificate to REVOKED.
// Revocation is the only client-triggered status transition and it is executed
// entirely server-side; the caller re-fetches to observe the new state.
func (c *Client) RevokeCertificate(ctx context.Context, creds Credentials, id string) error {
	if id == "" {
		return NewAPIError(0, "certificate id is required", ErrValidation)
	}
	path := "/certificates/" + url.PathEscape(id) + "/revoke"
	return c.do(ctx, "certificates.revoke", http.MethodDelete, path, &creds, nil, nil)
}
