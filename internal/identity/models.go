// Package identity tracks operator and administrator accounts. Respondents
// are anonymous and never appear here; the verification gate consults this
// package to keep staff out of the questionnaire funnel.
package identity

import (
	"strings"
	"time"

	"intake/pkg/domain"
)

// Account is an operator or administrator known to the system.
type Account struct {
	ID       domain.AccountID
	Username string
	// ChatID is bound on the account's first contact with the chat
	// transport; empty until then.
	ChatID    domain.RespondentID
	Admin     bool
	Active    bool
	CreatedAt time.Time
}

// NormalizeUsername lowercases and strips the transport's @-prefix.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}
