package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"intake/internal/fingerprint"
	"intake/internal/invite"
	"intake/pkg/domain"
	"intake/pkg/funnelerrors"
	"intake/pkg/sentinel"
)

// StaffChecker reports whether a respondent belongs to an operator or admin
// account. Implemented by the identity service.
type StaffChecker interface {
	IsStaff(ctx context.Context, rid domain.RespondentID) (bool, error)
}

// SessionLookup reports the invitation of a respondent's active funnel
// session, if any. Implemented by a funnel adapter; kept as an interface so
// this package does not depend on the funnel.
type SessionLookup interface {
	ActiveInvite(ctx context.Context, rid domain.RespondentID) (domain.InviteID, bool, error)
}

// CaptureInvite is what the chat transport needs to send a respondent to
// the capture page.
type CaptureInvite struct {
	Invitation *invite.Invitation
	CaptureURL string
}

// CaptureResult reports a stored capture back to the transport edge.
type CaptureResult struct {
	Fingerprint *fingerprint.Fingerprint

	// ContinueFunnel is set when the capture was integrity-verified and a
	// pending verification exists, so the chat side can prompt the
	// respondent to continue.
	ContinueFunnel bool
}

// Gate is the verification service: it admits respondents into the funnel
// only after a fingerprint capture tied to a valid invitation.
type Gate struct {
	invites  invite.Store
	staff    StaffChecker
	sessions SessionLookup
	pending  PendingStore
	prints   fingerprint.Store
	matcher  *fingerprint.Matcher
	tokens   *TokenIssuer

	captureBaseURL string
	log            *slog.Logger
}

func NewGate(
	invites invite.Store,
	staff StaffChecker,
	sessions SessionLookup,
	pending PendingStore,
	prints fingerprint.Store,
	matcher *fingerprint.Matcher,
	tokens *TokenIssuer,
	captureBaseURL string,
	log *slog.Logger,
) *Gate {
	return &Gate{
		invites:        invites,
		staff:          staff,
		sessions:       sessions,
		pending:        pending,
		prints:         prints,
		matcher:        matcher,
		tokens:         tokens,
		captureBaseURL: captureBaseURL,
		log:            log,
	}
}

// RequestVerification validates the invite code and records a pending
// verification, returning the capture link to send. A repeat request
// replaces the previous pending record.
func (g *Gate) RequestVerification(ctx context.Context, rid domain.RespondentID, code string) (*CaptureInvite, error) {
	inv, err := g.invites.ByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, funnelerrors.New(funnelerrors.CodeInviteInvalid, "unknown invite code")
		}
		return nil, fmt.Errorf("lookup invite: %w", err)
	}

	isStaff, err := g.staff.IsStaff(ctx, rid)
	if err != nil {
		return nil, fmt.Errorf("check staff: %w", err)
	}
	if isStaff {
		return nil, funnelerrors.New(funnelerrors.CodeRespondentIsOperator, "operators cannot enter the funnel")
	}

	if g.sessions != nil {
		activeInvite, ok, err := g.sessions.ActiveInvite(ctx, rid)
		if err != nil {
			return nil, fmt.Errorf("check active session: %w", err)
		}
		if ok && activeInvite != inv.ID {
			return nil, funnelerrors.New(funnelerrors.CodeConflictingSession, "another session is in progress")
		}
	}

	if err := g.pending.Put(ctx, &Pending{
		RespondentID: rid,
		InviteID:     inv.ID,
		CreatedAt:    time.Now(),
	}); err != nil {
		return nil, fmt.Errorf("record pending verification: %w", err)
	}

	token, err := g.tokens.Issue(rid, inv.ID)
	if err != nil {
		return nil, err
	}
	return &CaptureInvite{
		Invitation: inv,
		CaptureURL: g.captureBaseURL + "/capture?token=" + url.QueryEscape(token),
	}, nil
}

// SubmitCapture stores a capture unconditionally; even a tampered or
// anonymous capture is evidence. Correlation runs opportunistically for
// early operator warning and never blocks the capture.
func (g *Gate) SubmitCapture(ctx context.Context, rid domain.RespondentID, signals fingerprint.Signals, raw json.RawMessage, verified bool) (*CaptureResult, error) {
	fp := &fingerprint.Fingerprint{
		ID:           domain.NewFingerprintID(),
		RespondentID: rid,
		Signals:      signals,
		Raw:          raw,
		CreatedAt:    time.Now(),
	}
	if err := g.prints.Create(ctx, fp); err != nil {
		return nil, fmt.Errorf("store fingerprint: %w", err)
	}

	if g.matcher != nil && g.log != nil && !rid.IsZero() {
		if matches, err := g.matcher.Match(ctx, fp); err != nil {
			g.log.Warn("capture-time correlation failed",
				slog.String("respondent_id", string(rid)),
				slog.String("error", err.Error()))
		} else if len(matches) > 0 {
			g.log.Info("capture-time correlation hit",
				slog.String("respondent_id", string(rid)),
				slog.Int("matches", len(matches)))
		}
	}

	result := &CaptureResult{Fingerprint: fp}
	if verified && !rid.IsZero() {
		if _, err := g.pending.Get(ctx, rid); err == nil {
			result.ContinueFunnel = true
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, fmt.Errorf("check pending verification: %w", err)
		}
	}
	return result, nil
}

// ConfirmVerified consumes a pending verification after a successful
// capture and resolves what the funnel start needs. The invitation comes
// from the pending record, falling back to the transport-supplied hint; the
// fingerprint comes from the given ID, falling back to the respondent's
// latest capture.
func (g *Gate) ConfirmVerified(ctx context.Context, rid domain.RespondentID, fpID domain.FingerprintID, inviteHint domain.InviteID) (*invite.Invitation, domain.FingerprintID, error) {
	inviteID := inviteHint
	if p, err := g.pending.Get(ctx, rid); err == nil {
		inviteID = p.InviteID
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, domain.FingerprintID{}, fmt.Errorf("get pending verification: %w", err)
	}
	if inviteID.IsNil() {
		return nil, domain.FingerprintID{}, funnelerrors.New(funnelerrors.CodeSessionExpired, "verification session expired")
	}

	inv, err := g.invites.ByID(ctx, inviteID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, domain.FingerprintID{}, funnelerrors.New(funnelerrors.CodeSessionExpired, "invitation no longer exists")
		}
		return nil, domain.FingerprintID{}, fmt.Errorf("lookup invite: %w", err)
	}

	if fpID.IsNil() {
		fp, err := g.prints.LatestByRespondent(ctx, rid)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return nil, domain.FingerprintID{}, fmt.Errorf("lookup latest fingerprint: %w", err)
		}
		if fp != nil {
			fpID = fp.ID
		}
	}

	if err := g.pending.Delete(ctx, rid); err != nil {
		return nil, domain.FingerprintID{}, fmt.Errorf("clear pending verification: %w", err)
	}
	return inv, fpID, nil
}

// RejectVerification reports a failed capture. The pending record is left
// intact so the respondent can retry the same capture link.
func (g *Gate) RejectVerification(rid domain.RespondentID, reason string) error {
	if g.log != nil {
		g.log.Info("verification rejected",
			slog.String("respondent_id", string(rid)),
			slog.String("reason", reason))
	}
	return funnelerrors.New(funnelerrors.CodeVerificationFailed, "device verification failed")
}
