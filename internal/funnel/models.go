// Package funnel drives a respondent's journey through the questionnaire
// and the post-questionnaire media capture. Durable progress (the answer
// map and session status) lives in the store; the capture tail is held in
// memory only and restarts from the document prompt after a crash.
package funnel

import (
	"time"

	"intake/pkg/domain"
)

// Status is the durable session status.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// State is the in-memory conversational state of an active respondent.
type State string

const (
	StateAnswering             State = "answering"
	StateAwaitingDocumentPhoto State = "awaiting_document_photo"
	StateAwaitingLivenessVideo State = "awaiting_liveness_video"
	StateDone                  State = "done"
)

// MediaKind classifies an incoming media attachment.
type MediaKind string

const (
	KindPhoto    MediaKind = "photo"
	KindVideo    MediaKind = "video"
	KindDocument MediaKind = "document"

	// KindCircular is the round selfie-video some chat clients record
	// in-place; accepted wherever a liveness video is.
	KindCircular MediaKind = "circular"
)

// MediaAttachment references a media object held by the chat transport.
type MediaAttachment struct {
	Kind     MediaKind
	FileRef  string
	FileName string
	Caption  string
}

// Session is the durable record of one funnel run.
type Session struct {
	ID               domain.SessionID
	InviteID         domain.InviteID
	RespondentID     domain.RespondentID
	RespondentHandle string
	RespondentName   string
	Answers          map[string]string
	Status           Status
	CreatedAt        time.Time
	CompletedAt      *time.Time
}
