package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"intake/internal/identity"
	"intake/internal/invite"
	"intake/pkg/domain"
	"intake/pkg/funnelerrors"
	"intake/pkg/sentinel"
)

// InviteService is the slice of the invite service the operator API needs.
type InviteService interface {
	Create(ctx context.Context, operatorID domain.AccountID, description string, language domain.Language) (*invite.Invitation, error)
	ListByOperator(ctx context.Context, operatorID domain.AccountID) ([]*invite.Summary, error)
}

// AccountResolver resolves operator usernames for the invite API.
type AccountResolver interface {
	ByUsername(ctx context.Context, username string) (*identity.Account, error)
}

// InviteHandler exposes the operator invite API.
type InviteHandler struct {
	invites  InviteService
	accounts AccountResolver
}

func NewInviteHandler(invites InviteService, accounts AccountResolver) *InviteHandler {
	return &InviteHandler{invites: invites, accounts: accounts}
}

func (h *InviteHandler) Register(r chi.Router) {
	r.Post("/operator/invites", h.handleCreate)
	r.Get("/operator/invites", h.handleList)
}

type createInviteRequest struct {
	Operator    string `json:"operator"`
	Description string `json:"description"`
	Language    string `json:"language"`
}

type inviteResponse struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Language    string    `json:"language"`
	CreatedAt   time.Time `json:"created_at"`

	Completed *int `json:"completed,omitempty"`
}

func (h *InviteHandler) handleCreate(w http.ResponseWriter, req *http.Request) {
	var body createInviteRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, funnelerrors.New(funnelerrors.CodeInvalidInput, "invalid request body"))
		return
	}

	operator := h.resolveOperator(req.Context(), body.Operator, w)
	if operator == nil {
		return
	}

	inv, err := h.invites.Create(req.Context(), operator.ID, body.Description,
		domain.ParseLanguage(body.Language))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inviteResponse{
		ID:          inv.ID.String(),
		Code:        inv.Code,
		Description: inv.Description,
		Language:    string(inv.Language),
		CreatedAt:   inv.CreatedAt,
	})
}

func (h *InviteHandler) handleList(w http.ResponseWriter, req *http.Request) {
	operator := h.resolveOperator(req.Context(), req.URL.Query().Get("operator"), w)
	if operator == nil {
		return
	}

	summaries, err := h.invites.ListByOperator(req.Context(), operator.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]inviteResponse, 0, len(summaries))
	for _, s := range summaries {
		completed := s.CompletedCount
		out = append(out, inviteResponse{
			ID:          s.ID.String(),
			Code:        s.Code,
			Description: s.Description,
			Language:    string(s.Language),
			CreatedAt:   s.CreatedAt,
			Completed:   &completed,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// resolveOperator maps a username onto an active account. It writes the
// error response itself and returns nil when resolution fails.
func (h *InviteHandler) resolveOperator(ctx context.Context, username string, w http.ResponseWriter) *identity.Account {
	if username == "" {
		writeError(w, funnelerrors.New(funnelerrors.CodeInvalidInput, "operator is required"))
		return nil
	}
	account, err := h.accounts.ByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			writeError(w, funnelerrors.New(funnelerrors.CodeInvalidInput, "unknown operator"))
			return nil
		}
		writeError(w, err)
		return nil
	}
	if !account.Active {
		writeError(w, funnelerrors.New(funnelerrors.CodeInvalidInput, "operator is inactive"))
		return nil
	}
	return account
}
