package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"intake/internal/funnel"
	"intake/internal/invite"
	"intake/internal/verification"
	"intake/pkg/domain"
	"intake/pkg/funnelerrors"
)

// Dispatcher routes inbound transport events to the verification gate and
// the funnel controller and sends the localized replies. Event handlers
// never return domain errors to the transport; every outcome becomes a
// message to the respondent.
type Dispatcher struct {
	gate      *verification.Gate
	ctrl      *funnel.Controller
	sessions  funnel.Store
	invites   invite.Store
	messenger Messenger
	log       *slog.Logger

	// langs remembers each active respondent's invitation language so error
	// replies stay localized between steps. Entries are removed on cancel and
	// completion; respondents who go silent keep theirs, so the map grows with
	// distinct respondents per process lifetime, not with traffic.
	langMu sync.RWMutex
	langs  map[domain.RespondentID]domain.Language
}

func NewDispatcher(
	gate *verification.Gate,
	ctrl *funnel.Controller,
	sessions funnel.Store,
	invites invite.Store,
	messenger Messenger,
	log *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		gate:      gate,
		ctrl:      ctrl,
		sessions:  sessions,
		invites:   invites,
		messenger: messenger,
		log:       log,
		langs:     make(map[domain.RespondentID]domain.Language),
	}
}

// HandleInviteStart processes a respondent following an invite link: resume
// an interrupted session for the same invitation, otherwise open a
// verification.
func (d *Dispatcher) HandleInviteStart(ctx context.Context, ev InviteStart) error {
	rid := ev.Respondent.ID

	if inv, err := d.invites.ByCode(ctx, ev.Code); err == nil {
		if _, err := d.sessions.ActiveByRespondentInvite(ctx, rid, inv.ID); err == nil {
			d.setLanguage(rid, inv.Language)
			step, err := d.ctrl.Resume(ctx, rid)
			if err != nil {
				return d.replyError(ctx, rid, inv.Language, err)
			}
			return d.renderStep(ctx, rid, step)
		}
	}

	ci, err := d.gate.RequestVerification(ctx, rid, ev.Code)
	if err != nil {
		return d.replyError(ctx, rid, d.language(rid), err)
	}
	d.setLanguage(rid, ci.Invitation.Language)
	return d.send(d.messenger.PromptCapture(ctx, rid,
		Text(ci.Invitation.Language, "capture_prompt"), ci.CaptureURL))
}

// HandleCaptureCompleted processes the capture page's verdict and, on
// success, starts the questionnaire.
func (d *Dispatcher) HandleCaptureCompleted(ctx context.Context, ev CaptureCompleted) error {
	rid := ev.Respondent.ID
	lang := d.language(rid)

	if !ev.Verified {
		err := d.gate.RejectVerification(rid, ev.Reason)
		return d.replyError(ctx, rid, lang, err)
	}

	inv, fpID, err := d.gate.ConfirmVerified(ctx, rid, ev.FingerprintID, ev.InviteID)
	if err != nil {
		return d.replyError(ctx, rid, lang, err)
	}
	d.setLanguage(rid, inv.Language)

	step, err := d.ctrl.Start(ctx, rid, ev.Respondent.Handle, ev.Respondent.Name, inv, fpID)
	if err != nil {
		return d.replyError(ctx, rid, inv.Language, err)
	}
	if err := d.send(d.messenger.SendText(ctx, rid, Text(inv.Language, "welcome"))); err != nil {
		return err
	}
	return d.renderStep(ctx, rid, step)
}

// HandleText processes a plain message: an answer while answering, a resume
// attempt when the in-memory state is gone.
func (d *Dispatcher) HandleText(ctx context.Context, ev TextMessage) error {
	rid := ev.Respondent.ID

	if _, ok := d.ctrl.State(rid); !ok {
		step, err := d.ctrl.Resume(ctx, rid)
		if err != nil {
			if funnelerrors.IsCode(err, funnelerrors.CodeSessionExpired) {
				// Unprompted message from someone with nothing active.
				return nil
			}
			return d.replyError(ctx, rid, d.language(rid), err)
		}
		return d.renderStep(ctx, rid, step)
	}

	step, err := d.ctrl.SubmitText(ctx, rid, ev.Text)
	if err != nil {
		return d.replyError(ctx, rid, d.language(rid), err)
	}
	return d.renderStep(ctx, rid, step)
}

// HandleMedia processes a media attachment for whichever stage expects one.
func (d *Dispatcher) HandleMedia(ctx context.Context, ev MediaMessage) error {
	rid := ev.Respondent.ID

	if _, ok := d.ctrl.State(rid); !ok {
		if step, err := d.ctrl.Resume(ctx, rid); err == nil {
			return d.renderStep(ctx, rid, step)
		}
		return nil
	}

	step, err := d.ctrl.SubmitMedia(ctx, rid, ev.Attachment)
	if err != nil {
		return d.replyError(ctx, rid, d.language(rid), err)
	}
	return d.renderStep(ctx, rid, step)
}

// HandleCancel aborts the respondent's session.
func (d *Dispatcher) HandleCancel(ctx context.Context, ev CancelCommand) error {
	rid := ev.Respondent.ID
	lang := d.language(rid)

	cancelled, err := d.ctrl.Cancel(ctx, rid)
	if err != nil {
		return d.replyError(ctx, rid, lang, err)
	}
	d.dropLanguage(rid)
	if !cancelled {
		// Nothing active; stay silent.
		return nil
	}
	return d.send(d.messenger.SendText(ctx, rid, Text(lang, "cancelled")))
}

func (d *Dispatcher) renderStep(ctx context.Context, rid domain.RespondentID, step *funnel.Step) error {
	d.setLanguage(rid, step.Language)

	switch step.Kind {
	case funnel.StepQuestion:
		if step.Resumed {
			if err := d.send(d.messenger.SendText(ctx, rid,
				Text(step.Language, "resumed", step.Answered, step.Total))); err != nil {
				return err
			}
		}
		return d.send(d.messenger.SendText(ctx, rid,
			Text(step.Language, "question", step.Number, step.Total, step.Question)))
	case funnel.StepDocumentPrompt:
		return d.send(d.messenger.SendText(ctx, rid, Text(step.Language, "document_prompt")))
	case funnel.StepLivenessPrompt:
		return d.send(d.messenger.SendText(ctx, rid, Text(step.Language, "liveness_prompt")))
	case funnel.StepDone:
		d.dropLanguage(rid)
		return d.send(d.messenger.SendText(ctx, rid, Text(step.Language, "done")))
	default:
		return nil
	}
}

// replyError maps a domain error onto a localized message. Infrastructure
// errors become a generic retry prompt and are logged.
func (d *Dispatcher) replyError(ctx context.Context, rid domain.RespondentID, lang domain.Language, err error) error {
	var key string
	switch funnelerrors.CodeOf(err) {
	case funnelerrors.CodeInviteInvalid:
		key = "invite_invalid"
	case funnelerrors.CodeRespondentIsOperator:
		key = "operator_refused"
	case funnelerrors.CodeConflictingSession:
		key = "conflict"
	case funnelerrors.CodeSessionExpired:
		key = "session_expired"
	case funnelerrors.CodeVerificationFailed:
		key = "verify_failed"
	case funnelerrors.CodeNoQuestionsConfigured:
		key = "no_questions"
	case funnelerrors.CodeEmptyAnswer:
		key = "empty_answer"
	case funnelerrors.CodeUnexpectedInputType:
		key = d.inputHintKey(rid)
	default:
		d.log.Error("unhandled dispatch error",
			slog.String("respondent_id", string(rid)),
			slog.String("error", err.Error()))
		key = "try_again"
	}
	return d.send(d.messenger.SendText(ctx, rid, Text(lang, key)))
}

// inputHintKey picks the re-prompt matching the stage that rejected the
// input.
func (d *Dispatcher) inputHintKey(rid domain.RespondentID) string {
	state, ok := d.ctrl.State(rid)
	if ok && state == funnel.StateAwaitingLivenessVideo {
		return "expect_liveness"
	}
	return "expect_document"
}

func (d *Dispatcher) language(rid domain.RespondentID) domain.Language {
	d.langMu.RLock()
	defer d.langMu.RUnlock()
	if lang, ok := d.langs[rid]; ok {
		return lang
	}
	return domain.DefaultLanguage
}

func (d *Dispatcher) setLanguage(rid domain.RespondentID, lang domain.Language) {
	d.langMu.Lock()
	defer d.langMu.Unlock()
	d.langs[rid] = lang
}

func (d *Dispatcher) dropLanguage(rid domain.RespondentID) {
	d.langMu.Lock()
	defer d.langMu.Unlock()
	delete(d.langs, rid)
}

func (d *Dispatcher) send(err error) error {
	if err != nil && !errors.Is(err, context.Canceled) {
		d.log.Error("outbound delivery failed", slog.String("error", err.Error()))
		return err
	}
	return err
}
