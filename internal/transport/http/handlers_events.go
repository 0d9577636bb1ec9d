package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"intake/internal/chat"
	"intake/internal/funnel"
	"intake/pkg/domain"
	"intake/pkg/funnelerrors"
)

// ChatDispatcher is the slice of the chat dispatcher the event webhook
// drives.
type ChatDispatcher interface {
	HandleInviteStart(ctx context.Context, ev chat.InviteStart) error
	HandleText(ctx context.Context, ev chat.TextMessage) error
	HandleMedia(ctx context.Context, ev chat.MediaMessage) error
	HandleCaptureCompleted(ctx context.Context, ev chat.CaptureCompleted) error
	HandleCancel(ctx context.Context, ev chat.CancelCommand) error
}

// EventsHandler accepts the chat transport's inbound event webhook and
// fans events out to the dispatcher. Replies travel back through the
// outbound messenger, so the webhook response carries no payload.
type EventsHandler struct {
	dispatcher ChatDispatcher
	log        *slog.Logger
}

func NewEventsHandler(dispatcher ChatDispatcher, log *slog.Logger) *EventsHandler {
	return &EventsHandler{dispatcher: dispatcher, log: log}
}

func (h *EventsHandler) Register(r chi.Router) {
	r.Post("/transport/events", h.handleEvent)
}

type inboundRespondent struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
	Name   string `json:"name"`
}

type inboundMedia struct {
	Kind     string `json:"kind"`
	FileRef  string `json:"file_ref"`
	FileName string `json:"file_name"`
	Caption  string `json:"caption"`
}

// inboundEvent is the transport's event envelope; kind selects which of the
// optional fields matter.
type inboundEvent struct {
	Kind       string            `json:"kind"`
	Respondent inboundRespondent `json:"respondent"`

	Code  string        `json:"code,omitempty"`
	Text  string        `json:"text,omitempty"`
	Media *inboundMedia `json:"media,omitempty"`

	Verified      bool   `json:"verified,omitempty"`
	FingerprintID string `json:"fingerprint_id,omitempty"`
	InviteID      string `json:"invite_id,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

func (h *EventsHandler) handleEvent(w http.ResponseWriter, req *http.Request) {
	var ev inboundEvent
	if err := json.NewDecoder(req.Body).Decode(&ev); err != nil {
		writeError(w, funnelerrors.New(funnelerrors.CodeInvalidInput, "invalid event body"))
		return
	}
	if ev.Respondent.ID == "" {
		writeError(w, funnelerrors.New(funnelerrors.CodeInvalidInput, "respondent id is required"))
		return
	}

	identity := chat.Identity{
		ID:     domain.RespondentID(ev.Respondent.ID),
		Handle: ev.Respondent.Handle,
		Name:   ev.Respondent.Name,
	}

	ctx := req.Context()
	var err error
	switch ev.Kind {
	case "invite_start":
		err = h.dispatcher.HandleInviteStart(ctx, chat.InviteStart{
			Respondent: identity,
			Code:       ev.Code,
		})
	case "text":
		err = h.dispatcher.HandleText(ctx, chat.TextMessage{
			Respondent: identity,
			Text:       ev.Text,
		})
	case "media":
		if ev.Media == nil {
			writeError(w, funnelerrors.New(funnelerrors.CodeInvalidInput, "media event without attachment"))
			return
		}
		err = h.dispatcher.HandleMedia(ctx, chat.MediaMessage{
			Respondent: identity,
			Attachment: funnel.MediaAttachment{
				Kind:     funnel.MediaKind(ev.Media.Kind),
				FileRef:  ev.Media.FileRef,
				FileName: ev.Media.FileName,
				Caption:  ev.Media.Caption,
			},
		})
	case "capture_completed":
		// Blank or malformed IDs leave the hint empty; the gate falls back
		// to the pending record and the latest capture.
		fpID, _ := domain.ParseFingerprintID(ev.FingerprintID)
		inviteID, _ := domain.ParseInviteID(ev.InviteID)
		err = h.dispatcher.HandleCaptureCompleted(ctx, chat.CaptureCompleted{
			Respondent:    identity,
			Verified:      ev.Verified,
			FingerprintID: fpID,
			InviteID:      inviteID,
			Reason:        ev.Reason,
		})
	case "cancel":
		err = h.dispatcher.HandleCancel(ctx, chat.CancelCommand{Respondent: identity})
	default:
		writeError(w, funnelerrors.New(funnelerrors.CodeInvalidInput, "unknown event kind"))
		return
	}

	if err != nil {
		// The dispatcher already replied to the respondent where possible;
		// the webhook only reports delivery-level failures.
		h.log.Error("event dispatch failed",
			slog.String("kind", ev.Kind),
			slog.String("respondent_id", ev.Respondent.ID),
			slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
}
