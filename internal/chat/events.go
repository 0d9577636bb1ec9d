// Package chat adapts transport events (invite links, messages, capture
// callbacks) onto the verification gate and the funnel controller, and
// renders localized respondent-facing text.
package chat

import (
	"intake/internal/funnel"
	"intake/pkg/domain"
)

// Identity is what the chat transport knows about a respondent.
type Identity struct {
	ID     domain.RespondentID
	Handle string
	Name   string
}

// InviteStart is a respondent following an invite link.
type InviteStart struct {
	Respondent Identity
	Code       string
}

// TextMessage is a plain text message from a respondent.
type TextMessage struct {
	Respondent Identity
	Text       string
}

// MediaMessage is a media attachment from a respondent.
type MediaMessage struct {
	Respondent Identity
	Attachment funnel.MediaAttachment
}

// CaptureCompleted is the capture page reporting back through the
// transport. Verified means the payload's integrity token checked out.
type CaptureCompleted struct {
	Respondent    Identity
	Verified      bool
	FingerprintID domain.FingerprintID

	// InviteID is the transport's hint from the capture token, used when
	// the pending record is gone.
	InviteID domain.InviteID

	// Reason describes a failed capture for the operator log.
	Reason string
}

// CancelCommand is the respondent aborting their session.
type CancelCommand struct {
	Respondent Identity
}
