// Package invite manages operator-created invitations: the single-use links
// that anchor a funnel's language and topic metadata. Invitations are
// immutable after creation; the core reads them, never rewrites them.
package invite

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"intake/pkg/domain"
)

// Invitation anchors one funnel: who issued it, what it is about, and which
// language the respondent sees.
type Invitation struct {
	ID          domain.InviteID
	OperatorID  domain.AccountID
	Code        string
	Description string
	Language    domain.Language
	CreatedAt   time.Time
}

// Summary augments an invitation with its completed-session count for
// operator listings.
type Summary struct {
	Invitation
	CompletedCount int
}

// newCode returns a URL-safe random invite code.
func newCode() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic("invite: crypto/rand unavailable: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
