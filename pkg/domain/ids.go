// Package domain holds the identifier and enumeration types shared across
// the funnel services. Keeping them here avoids import cycles between the
// verification, fingerprint, and funnel packages.
package domain

import "github.com/google/uuid"

// RespondentID is the opaque identity the chat transport assigns to an
// anonymous respondent. The core never interprets its contents.
type RespondentID string

// IsZero reports whether no respondent identity is set.
func (r RespondentID) IsZero() bool { return r == "" }

func (r RespondentID) String() string { return string(r) }

// InviteID identifies an operator-created invitation.
type InviteID uuid.UUID

func NewInviteID() InviteID { return InviteID(uuid.New()) }

func (id InviteID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id InviteID) String() string { return uuid.UUID(id).String() }

// ParseInviteID parses a textual invite identifier.
func ParseInviteID(s string) (InviteID, error) {
	u, err := uuid.Parse(s)
	return InviteID(u), err
}

func (id InviteID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *InviteID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = InviteID(u)
	return nil
}

// SessionID identifies a durable funnel session.
type SessionID uuid.UUID

func NewSessionID() SessionID { return SessionID(uuid.New()) }

func (id SessionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id SessionID) String() string { return uuid.UUID(id).String() }

func (id SessionID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *SessionID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = SessionID(u)
	return nil
}

// ParseSessionID parses a textual session identifier.
func ParseSessionID(s string) (SessionID, error) {
	u, err := uuid.Parse(s)
	return SessionID(u), err
}

// FingerprintID identifies a captured device fingerprint.
type FingerprintID uuid.UUID

func NewFingerprintID() FingerprintID { return FingerprintID(uuid.New()) }

func (id FingerprintID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id FingerprintID) String() string { return uuid.UUID(id).String() }

// ParseFingerprintID parses a textual fingerprint identifier.
func ParseFingerprintID(s string) (FingerprintID, error) {
	u, err := uuid.Parse(s)
	return FingerprintID(u), err
}

func (id FingerprintID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *FingerprintID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = FingerprintID(u)
	return nil
}

// AccountID identifies an operator or administrator account.
type AccountID uuid.UUID

func NewAccountID() AccountID { return AccountID(uuid.New()) }

func (id AccountID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id AccountID) String() string { return uuid.UUID(id).String() }

// ParseAccountID parses a textual account identifier.
func ParseAccountID(s string) (AccountID, error) {
	u, err := uuid.Parse(s)
	return AccountID(u), err
}

func (id AccountID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *AccountID) UnmarshalText(b []byte) error {
	u, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = AccountID(u)
	return nil
}
