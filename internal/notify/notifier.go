// Package notify delivers operator-facing notifications: a completion
// bundle when a respondent finishes answering, and a verification bundle
// when media capture concludes.
package notify

import (
	"context"
	"time"

	"intake/internal/fingerprint"
	"intake/pkg/domain"
)

// AnsweredQuestion pairs a question with the respondent's answer, in asking
// order.
type AnsweredQuestion struct {
	Key      string `json:"key"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// MediaRef points at a media object held by the chat transport. The service
// never stores media bytes; operators fetch them by reference.
type MediaRef struct {
	Kind     string `json:"kind"`
	FileRef  string `json:"file_ref"`
	FileName string `json:"file_name,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

// FingerprintSummary is the slice of a stored fingerprint worth showing an
// operator inline.
type FingerprintSummary struct {
	ID               domain.FingerprintID `json:"id"`
	NetworkAddress   string               `json:"network_address"`
	ScreenResolution string               `json:"screen_resolution"`
	Timezone         string               `json:"timezone"`
	Platform         string               `json:"platform"`
	Premium          bool                 `json:"is_premium"`
}

// CompletionBundle is everything an operator sees when a respondent
// finishes the questionnaire.
type CompletionBundle struct {
	SessionID         domain.SessionID    `json:"session_id"`
	InviteID          domain.InviteID     `json:"invite_id"`
	InviteDescription string              `json:"invite_description"`
	RespondentID      domain.RespondentID `json:"respondent_id"`
	RespondentHandle  string              `json:"respondent_handle"`
	RespondentName    string              `json:"respondent_name"`
	Answers           []AnsweredQuestion  `json:"answers"`
	Media             []MediaRef          `json:"media,omitempty"`
	Fingerprint       *FingerprintSummary `json:"fingerprint,omitempty"`
	MatchReport       *fingerprint.Report `json:"match_report,omitempty"`
	OperatorChatID    domain.RespondentID `json:"operator_chat_id,omitempty"`
	OperatorUsername  string              `json:"operator_username,omitempty"`
	CompletedAt       time.Time           `json:"completed_at"`
}

// VerificationBundle is sent when the post-questionnaire media capture
// concludes.
type VerificationBundle struct {
	SessionID        domain.SessionID    `json:"session_id"`
	RespondentID     domain.RespondentID `json:"respondent_id"`
	RespondentHandle string              `json:"respondent_handle"`
	DocumentPhoto    *MediaRef           `json:"document_photo,omitempty"`
	Liveness         *MediaRef           `json:"liveness,omitempty"`

	// DocumentMissing flags a liveness video that arrived without a
	// preceding document photo.
	DocumentMissing bool `json:"document_missing,omitempty"`

	OperatorChatID   domain.RespondentID `json:"operator_chat_id,omitempty"`
	OperatorUsername string              `json:"operator_username,omitempty"`
	CapturedAt       time.Time           `json:"captured_at"`
}

// Notifier delivers operator notifications. Delivery failures are the
// caller's to log; they must never roll back funnel progress.
type Notifier interface {
	SessionCompleted(ctx context.Context, b *CompletionBundle) error
	VerificationCaptured(ctx context.Context, b *VerificationBundle) error
}
