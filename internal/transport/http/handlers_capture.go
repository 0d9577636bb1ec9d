package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mssola/useragent"

	"intake/internal/chat"
	"intake/internal/fingerprint"
	"intake/internal/verification"
	"intake/pkg/domain"
	"intake/pkg/funnelerrors"
	"intake/pkg/requestcontext"
)

// CaptureGate is the slice of the verification gate the capture endpoint
// needs.
type CaptureGate interface {
	SubmitCapture(ctx context.Context, rid domain.RespondentID, signals fingerprint.Signals, raw json.RawMessage, verified bool) (*verification.CaptureResult, error)
}

// CaptureEvents forwards the capture verdict to the chat side so the
// respondent gets their continue prompt even when the page's own callback
// is lost.
type CaptureEvents interface {
	HandleCaptureCompleted(ctx context.Context, ev chat.CaptureCompleted) error
}

// CaptureHandler serves the capture page and accepts its submission.
type CaptureHandler struct {
	gate          CaptureGate
	tokens        *verification.TokenIssuer
	events        CaptureEvents
	botCredential string
	log           *slog.Logger
}

func NewCaptureHandler(gate CaptureGate, tokens *verification.TokenIssuer, events CaptureEvents, botCredential string, log *slog.Logger) *CaptureHandler {
	return &CaptureHandler{
		gate:          gate,
		tokens:        tokens,
		events:        events,
		botCredential: botCredential,
		log:           log,
	}
}

func (h *CaptureHandler) Register(r chi.Router) {
	r.Get("/capture", h.handlePage)
	r.Post("/api/capture", h.handleSubmit)
}

// handlePage serves the capture page for a valid capture-link token.
func (h *CaptureHandler) handlePage(w http.ResponseWriter, req *http.Request) {
	token := req.URL.Query().Get("token")
	if _, err := h.tokens.Parse(token); err != nil {
		writeError(w, funnelerrors.New(funnelerrors.CodeSessionExpired, "capture link expired"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(capturePage))
}

type captureRequest struct {
	Token string `json:"token"`

	// InitData is the chat platform's signed integrity token.
	InitData string `json:"init_data"`

	// Payload is the collected fingerprint; stored verbatim alongside the
	// normalized signals.
	Payload json.RawMessage `json:"payload"`
}

type captureResponse struct {
	Success       bool   `json:"success"`
	FingerprintID string `json:"fingerprint_id"`
	Verified      bool   `json:"verified"`
}

// handleSubmit stores the capture. A tampered or absent integrity token
// downgrades the capture to anonymous; it is stored either way.
func (h *CaptureHandler) handleSubmit(w http.ResponseWriter, req *http.Request) {
	var body captureRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, funnelerrors.New(funnelerrors.CodeInvalidInput, "invalid request body"))
		return
	}

	var signals fingerprint.Signals
	if len(body.Payload) > 0 {
		if err := json.Unmarshal(body.Payload, &signals); err != nil {
			writeError(w, funnelerrors.New(funnelerrors.CodeInvalidInput, "invalid fingerprint payload"))
			return
		}
	}

	ctx := req.Context()
	// The page cannot see the real client address; the server fills it in.
	signals.NetworkAddress = requestcontext.ClientIP(ctx)
	if signals.UserAgent == "" {
		signals.UserAgent = requestcontext.UserAgent(ctx)
	}
	if signals.Platform == "" && signals.UserAgent != "" {
		signals.Platform = useragent.New(signals.UserAgent).Platform()
	}

	verified := false
	var rid domain.RespondentID
	var inviteID domain.InviteID

	if token, err := h.tokens.Parse(body.Token); err == nil {
		rid = token.RespondentID
		inviteID = token.InviteID
	}
	if body.InitData != "" {
		if err := verification.ValidateIntegrityToken(body.InitData, h.botCredential); err == nil {
			initRID, premium := verification.RespondentFromInitData(body.InitData)
			signals.Premium = signals.Premium || premium
			// The signed identity wins over the link token.
			if !initRID.IsZero() {
				rid = initRID
			}
			verified = true
		} else {
			h.log.Warn("integrity token rejected",
				slog.String("respondent_id", string(rid)))
		}
	}

	result, err := h.gate.SubmitCapture(ctx, rid, signals, body.Payload, verified)
	if err != nil {
		h.log.Error("capture submit failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	if h.events != nil && !rid.IsZero() && result.ContinueFunnel {
		ev := chat.CaptureCompleted{
			Respondent:    chat.Identity{ID: rid},
			Verified:      true,
			FingerprintID: result.Fingerprint.ID,
			InviteID:      inviteID,
		}
		if err := h.events.HandleCaptureCompleted(ctx, ev); err != nil {
			h.log.Error("capture continuation failed",
				slog.String("respondent_id", string(rid)),
				slog.String("error", err.Error()))
		}
	}

	writeJSON(w, http.StatusOK, captureResponse{
		Success:       true,
		FingerprintID: result.Fingerprint.ID.String(),
		Verified:      verified,
	})
}
