// display.go computes the advisory display label shown next to a certificate.
// The label is a rendering hint only: it is derived from wall-clock time on
// every call, never cached, and never written back to the record.
package certify

import (
	"time"

	"github.com/certifypro/certportal/internal/platform"
)

// DefaultExpiringSoonWindow is the look-ahead applied when an ACTIVE
// certificate's expiry date is close enough to warrant a warning label. The
// platform never defined this threshold, so 30 days is the portal's own
// documented choice and is overridable via verification.expiring_soon_days.
const DefaultExpiringSoonWindow = 30 * 24 * time.Hour

// Display labels. Statuses render title-cased; ExpiringSoon replaces Active
// only while the expiry window is open.
const (
	LabelActive       = "Active"
	LabelRevoked      = "Revoked"
	LabelExpired      = "Expired"
	LabelPending      = "Pending"
	LabelExpiringSoon = "Expiring Soon"
)

// Classifier derives display labels from certificate records.
type Classifier struct {
	window time.Duration
}

// NewClassifier builds a Classifier with the given expiring-soon window;
// non-positive values fall back to DefaultExpiringSoonWindow.
func NewClassifier(window time.Duration) *Classifier {
	if window <= 0 {
		window = DefaultExpiringSoonWindow
	}
	return &Classifier{window: window}
}

// DisplayStatus returns the label to render for cert as of now.
//
// An ACTIVE certificate whose expiry date falls within the configured window
// of now is labelled "Expiring Soon"; an expiry date already in the past
// leaves the label at "Active" because the authoritative EXPIRED transition
// belongs to the platform, not this hint. Every other status renders
// verbatim, title-cased. Unknown statuses pass through unchanged so new
// platform states degrade visibly rather than silently.
func (c *Classifier) DisplayStatus(cert *platform.Certificate, now time.Time) string {
	switch cert.Status {
	case platform.StatusActive:
		if c.expiringSoon(cert, now) {
			return LabelExpiringSoon
		}
		return LabelActive
	case platform.StatusRevoked:
		return LabelRevoked
	case platform.StatusExpired:
		return LabelExpired
	case platform.StatusPending:
		return LabelPending
	default:
		return cert.Status.String()
	}
}

func (c *Classifier) expiringSoon(cert *platform.Certificate, now time.Time) bool {
	if !cert.Expires() {
		return false
	}
	remaining := cert.ExpiryDate.Time().Sub(platform.DateOf(now).Time())
	return remaining >= 0 && remaining <= c.window
}
