package verification

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"intake/pkg/domain"
)

// ErrIntegrityMismatch means the integrity token's signature did not verify.
// Callers treat the capture as anonymous rather than rejecting it.
var ErrIntegrityMismatch = errors.New("integrity token mismatch")

// ValidateIntegrityToken checks the chat platform's signed query-string
// token. The signature covers every field except hash, as sorted
// key=value lines joined by newlines, HMAC-SHA256 under a key derived from
// the bot credential.
func ValidateIntegrityToken(raw, botCredential string) error {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return fmt.Errorf("parse integrity token: %w", err)
	}
	provided := values.Get("hash")
	if provided == "" {
		return ErrIntegrityMismatch
	}
	values.Del("hash")

	lines := make([]string, 0, len(values))
	for key := range values {
		lines = append(lines, key+"="+values.Get(key))
	}
	sort.Strings(lines)
	payload := strings.Join(lines, "\n")

	keyMAC := hmac.New(sha256.New, []byte("WebAppData"))
	keyMAC.Write([]byte(botCredential))
	secret := keyMAC.Sum(nil)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payload))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(provided)) {
		return ErrIntegrityMismatch
	}
	return nil
}

type initDataUser struct {
	ID      int64 `json:"id"`
	Premium bool  `json:"is_premium"`
}

// RespondentFromInitData extracts the respondent identity and premium flag
// from a validated integrity token. Missing or malformed user data yields a
// zero respondent.
func RespondentFromInitData(raw string) (domain.RespondentID, bool) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return "", false
	}
	userJSON := values.Get("user")
	if userJSON == "" {
		return "", false
	}
	var user initDataUser
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil || user.ID == 0 {
		return "", false
	}
	return domain.RespondentID(fmt.Sprintf("%d", user.ID)), user.Premium
}
