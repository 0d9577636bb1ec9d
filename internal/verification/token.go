package verification

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"intake/pkg/domain"
)

// TokenIssuer mints and validates the short-lived capture-link tokens that
// bind a capture page visit to a respondent and invitation. HS256 keyed on
// the bot credential, so the chat transport and the capture endpoint agree
// without shared state.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(botCredential string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(botCredential), ttl: ttl}
}

type captureClaims struct {
	RespondentID string `json:"rid"`
	InviteID     string `json:"inv"`
	jwt.RegisteredClaims
}

// CaptureToken is a parsed, validated capture-link token.
type CaptureToken struct {
	RespondentID domain.RespondentID
	InviteID     domain.InviteID
}

// Issue signs a capture token for the respondent and invitation.
func (t *TokenIssuer) Issue(rid domain.RespondentID, inviteID domain.InviteID) (string, error) {
	now := time.Now()
	claims := captureClaims{
		RespondentID: string(rid),
		InviteID:     inviteID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign capture token: %w", err)
	}
	return signed, nil
}

// Parse validates a capture token's signature and expiry.
func (t *TokenIssuer) Parse(raw string) (*CaptureToken, error) {
	var claims captureClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
		}
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse capture token: %w", err)
	}
	if claims.RespondentID == "" {
		return nil, fmt.Errorf("capture token has no respondent")
	}
	inviteID, err := domain.ParseInviteID(claims.InviteID)
	if err != nil {
		return nil, fmt.Errorf("capture token invite id: %w", err)
	}
	return &CaptureToken{
		RespondentID: domain.RespondentID(claims.RespondentID),
		InviteID:     inviteID,
	}, nil
}
