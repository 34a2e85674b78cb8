// types.go declares the data shapes exchanged with the CertifyPro platform API:
// certificates, certificate requests, user profiles, and the dashboard stats DTOs.
// All entities are owned and mutated exclusively by the platform; this package
// holds transient, read-mostly copies.
package platform

import (
	"encoding/json"
	"fmt"
	"time"
)

// CertificateStatus is the authoritative, platform-owned lifecycle state of a
// certificate. The client never recomputes it; advisory display hints live in
// internal/certify.
type CertificateStatus string

const (
	StatusActive  CertificateStatus = "ACTIVE"
	StatusRevoked CertificateStatus = "REVOKED"
	StatusExpired CertificateStatus = "EXPIRED"
	StatusPending CertificateStatus = "PENDING"
)

// Valid returns true if the status is one of the four platform-defined values.
func (s CertificateStatus) Valid() bool {
	switch s {
	case StatusActive, StatusRevoked, StatusExpired, StatusPending:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s CertificateStatus) String() string {
	return string(s)
}

// RequestStatus is the lifecycle state of a certificate request. APPROVED and
// REJECTED are terminal; the platform rejects any further transition.
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestApproved RequestStatus = "APPROVED"
	RequestRejected RequestStatus = "REJECTED"
)

// Terminal returns true once the request can no longer change state.
func (s RequestStatus) Terminal() bool {
	return s == RequestApproved || s == RequestRejected
}

// String returns the string representation of the request status.
func (s RequestStatus) String() string {
	return string(s)
}

// Role identifies the account variant a user holds on the platform.
type Role string

const (
	RoleIndividual Role = "INDIVIDUAL"
	RoleIssuer     Role = "ISSUER"
	RoleEmployer   Role = "EMPLOYER"
	RoleAdmin      Role = "ADMIN"
)

// Valid returns true if the role is one of the four platform-defined values.
func (r Role) Valid() bool {
	switch r {
	case RoleIndividual, RoleIssuer, RoleEmployer, RoleAdmin:
		return true
	default:
		return false
	}
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Date is a calendar date serialized as YYYY-MM-DD, matching the platform's
// LocalDate JSON encoding. The zero value marshals as null.
type Date struct {
	t time.Time
}

const dateLayout = "2006-01-02"

// NewDate builds a Date from year, month, and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d.t.IsZero() }

// Time returns the date as a time.Time at midnight UTC.
func (d Date) Time() time.Time { return d.t }

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }

// After reports whether d is strictly after other.
func (d Date) After(other Date) bool { return d.t.After(other.t) }

// String returns the YYYY-MM-DD form, or "" for the zero value.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

// MarshalJSON encodes the date as "YYYY-MM-DD", or null when unset.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "YYYY-MM-DD", null, or "" (treated as unset).
func (d *Date) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(*s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Certificate is a minted credential as returned by the platform. ID is the
// internal identifier; VerificationID is the externally shareable lookup key
// used for public verification. BlockchainHash and QRCode are opaque
// verification artifacts present only once issuance completes.
type Certificate struct {
	ID                 string            `json:"id"`
	VerificationID     string            `json:"verificationId"`
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	IssuedDate         Date              `json:"issuedDate"`
	ExpiryDate         *Date             `json:"expiryDate,omitempty"`
	Status             CertificateStatus `json:"status"`
	BlockchainHash     string            `json:"blockchainHash,omitempty"`
	QRCode             string            `json:"qrCode,omitempty"`
	Views              int               `json:"views"`
	HolderName         string            `json:"holderName"`
	HolderUsername     string            `json:"holderUsername"`
	IssuerName         string            `json:"issuerName"`
	IssuerOrganization string            `json:"issuerOrganization,omitempty"`
	Skills             []string          `json:"skills"`
}

// Expires reports whether the certificate carries an expiry date at all.
func (c *Certificate) Expires() bool {
	return c.ExpiryDate != nil && !c.ExpiryDate.IsZero()
}

// CertificateRequest is a pending ask from an individual to an issuer.
// RejectionReason is set only when Status is REJECTED.
type CertificateRequest struct {
	ID                string        `json:"id"`
	RequesterUsername string        `json:"requesterUsername"`
	RequesterEmail    string        `json:"requesterEmail"`
	IssuerUsername    string        `json:"issuerUsername"`
	RequestMessage    string        `json:"requestMessage"`
	Skills            []string      `json:"skills"`
	Status            RequestStatus `json:"status"`
	RequestedAt       time.Time     `json:"requestedAt"`
	RespondedAt       *time.Time    `json:"respondedAt,omitempty"`
	RejectionReason   string        `json:"rejectionReason,omitempty"`
}

// User is an account profile as returned by the platform.
type User struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	Username          string     `json:"username"`
	Role              Role       `json:"role"`
	Avatar            string     `json:"avatar,omitempty"`
	Bio               string     `json:"bio,omitempty"`
	Skills            []string   `json:"skills,omitempty"`
	Organization      string     `json:"organization,omitempty"`
	Location          string     `json:"location,omitempty"`
	Experience        string     `json:"experience,omitempty"`
	ProfileVisibility string     `json:"profileVisibility,omitempty"`
	CreatedAt         *time.Time `json:"createdAt,omitempty"`
}

// AuthSession is the result of a successful login or registration: the signed-in
// user plus the bearer token authorizing subsequent calls. The token is opaque
// to this client.
type AuthSession struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// RegisterInput is the payload for account creation. Role must be one of
// INDIVIDUAL, ISSUER, or EMPLOYER; admin accounts are provisioned server-side.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Password string `json:"password"`
}

// IssueInput is the payload for direct certificate issuance by an issuer.
type IssueInput struct {
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	RecipientEmail string   `json:"recipientEmail"`
	IssuedDate     Date     `json:"issuedDate"`
	ExpiryDate     *Date    `json:"expiryDate,omitempty"`
	Skills         []string `json:"skills"`
}

// CreateRequestInput is the payload for an individual requesting certification
// from an issuer.
type CreateRequestInput struct {
	IssuerUsername string   `json:"issuerUsername"`
	RequestMessage string   `json:"requestMessage"`
	Skills         []string `json:"skills"`
}

// ApprovalInput is the payload an issuer supplies when approving a request; the
// platform mints the certificate from it.
type ApprovalInput struct {
	CertificateName string `json:"certificateName"`
	Description     string `json:"description,omitempty"`
	IssuedDate      Date   `json:"issuedDate"`
	ExpiryDate      *Date  `json:"expiryDate,omitempty"`
}

// ProfileUpdate carries the editable profile fields. Nil pointers are omitted
// so the platform leaves those fields untouched.
type ProfileUpdate struct {
	Bio               *string  `json:"bio,omitempty"`
	Skills            []string `json:"skills,omitempty"`
	Organization      *string  `json:"organization,omitempty"`
	Location          *string  `json:"location,omitempty"`
	Experience        *string  `json:"experience,omitempty"`
	ProfileVisibility *string  `json:"profileVisibility,omitempty"`
}

// RoleBreakdown is one row of the admin dashboard's users-by-role table.
type RoleBreakdown struct {
	Role       Role    `json:"role"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// AdminStats is the aggregate view served to platform administrators.
type AdminStats struct {
	TotalUsers        int64           `json:"totalUsers"`
	TotalCertificates int64           `json:"totalCertificates"`
	ActiveIssuers     int64           `json:"activeIssuers"`
	MonthlyGrowth     float64         `json:"monthlyGrowth"`
	UserBreakdown     []RoleBreakdown `json:"userBreakdown"`
}

// IssuerStats summarizes an issuing organization's activity.
type IssuerStats struct {
	TotalIssued      int64   `json:"totalIssued"`
	ActiveTemplates  int64   `json:"activeTemplates"`
	MonthlyIssue     int64   `json:"monthlyIssue"`
	VerificationRate float64 `json:"verificationRate"`
}

// EmployerStats summarizes an employer account's browsing activity.
type EmployerStats struct {
	ProfilesViewed    int64 `json:"profilesViewed"`
	SavedProfiles     int64 `json:"savedProfiles"`
	SearchesThisMonth int64 `json:"searchesThisMonth"`
}
