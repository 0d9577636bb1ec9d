package funnel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"intake/internal/fingerprint"
	"intake/internal/funnel/metrics"
	"intake/internal/identity"
	"intake/internal/invite"
	"intake/internal/notify"
	"intake/internal/question"
	"intake/pkg/domain"
	"intake/pkg/funnelerrors"
	"intake/pkg/sentinel"
)

// StepKind tells the chat transport what to render next.
type StepKind string

const (
	StepQuestion       StepKind = "question"
	StepDocumentPrompt StepKind = "document_prompt"
	StepLivenessPrompt StepKind = "liveness_prompt"
	StepDone           StepKind = "done"
)

// Step is the controller's instruction to the transport after each input.
type Step struct {
	Kind     StepKind
	Language domain.Language
	Question string
	Number   int
	Total    int

	// Answered and Resumed describe a resumption, so the transport can tell
	// the respondent where they left off.
	Answered int
	Resumed  bool
}

// AccountDirectory resolves operator accounts for notification routing.
// Satisfied by the identity service.
type AccountDirectory interface {
	ByID(ctx context.Context, id domain.AccountID) (*identity.Account, error)
}

// Controller drives respondents through the questionnaire and the media
// capture tail. All work for one respondent is serialized; an answer is
// durably checkpointed before the cursor moves.
type Controller struct {
	store     Store
	questions *question.Sequencer
	invites   invite.Store
	accounts  AccountDirectory
	prints    fingerprint.Store
	matcher   *fingerprint.Matcher
	notifier  notify.Notifier

	reg     *registry
	log     *slog.Logger
	metrics *metrics.Metrics
}

func NewController(
	store Store,
	questions *question.Sequencer,
	invites invite.Store,
	accounts AccountDirectory,
	prints fingerprint.Store,
	matcher *fingerprint.Matcher,
	notifier notify.Notifier,
	log *slog.Logger,
	m *metrics.Metrics,
) *Controller {
	return &Controller{
		store:     store,
		questions: questions,
		invites:   invites,
		accounts:  accounts,
		prints:    prints,
		matcher:   matcher,
		notifier:  notifier,
		reg:       newRegistry(),
		log:       log,
		metrics:   m,
	}
}

// Start opens a new session for a verified respondent and returns the first
// question. Fails before creating anything when no questions are configured.
// A replayed capture verdict for an invite with a session already in
// progress resumes that session instead of opening a second one.
func (c *Controller) Start(ctx context.Context, rid domain.RespondentID, handle, name string, inv *invite.Invitation, fpID domain.FingerprintID) (*Step, error) {
	lock := c.reg.lock(rid)
	defer lock.Unlock()

	qs, err := c.questions.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(qs) == 0 {
		return nil, funnelerrors.New(funnelerrors.CodeNoQuestionsConfigured, "no questions configured")
	}

	if existing, err := c.store.ActiveByRespondentInvite(ctx, rid, inv.ID); err == nil {
		return c.reattach(existing, inv.Language, qs, fpID), nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, fmt.Errorf("check active session: %w", err)
	}

	sess := &Session{
		ID:               domain.NewSessionID(),
		InviteID:         inv.ID,
		RespondentID:     rid,
		RespondentHandle: handle,
		RespondentName:   name,
		Status:           StatusInProgress,
		CreatedAt:        time.Now(),
	}
	if err := c.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if !fpID.IsNil() {
		if err := c.prints.LinkSession(ctx, fpID, sess.ID); err != nil {
			c.log.Warn("link fingerprint failed",
				slog.String("session_id", sess.ID.String()),
				slog.String("error", err.Error()))
		}
	}

	rt := &runtime{
		SessionID:     sess.ID,
		InviteID:      inv.ID,
		Language:      inv.Language,
		FingerprintID: fpID,
		State:         StateAnswering,
		Questions:     qs,
	}
	c.reg.put(rid, rt)
	c.metrics.SessionStarted()

	return c.questionStep(rt), nil
}

// Resume reattaches a respondent to their active session after a restart or
// an unprompted message. The cursor is rebuilt from the durable answer map:
// the first unanswered question in order, or the last question when every
// key is present but the session never completed.
func (c *Controller) Resume(ctx context.Context, rid domain.RespondentID) (*Step, error) {
	lock := c.reg.lock(rid)
	defer lock.Unlock()

	if rt, ok := c.reg.get(rid); ok && rt.State == StateAnswering {
		step := c.questionStep(rt)
		step.Resumed = true
		step.Answered = rt.Index
		return step, nil
	}

	sess, err := c.store.ActiveByRespondent(ctx, rid)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, funnelerrors.New(funnelerrors.CodeSessionExpired, "no active session")
		}
		return nil, fmt.Errorf("lookup active session: %w", err)
	}

	inv, err := c.invites.ByID(ctx, sess.InviteID)
	if err != nil {
		return nil, fmt.Errorf("lookup invite: %w", err)
	}
	qs, err := c.questions.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(qs) == 0 {
		return nil, funnelerrors.New(funnelerrors.CodeNoQuestionsConfigured, "no questions configured")
	}

	var fpID domain.FingerprintID
	if fp, err := c.prints.LatestByRespondent(ctx, rid); err == nil {
		fpID = fp.ID
	}
	return c.reattach(sess, inv.Language, qs, fpID), nil
}

// reattach rebuilds the in-memory runtime from a durable session: the cursor
// lands on the first unanswered question in order, or the last question when
// every key is present but the session never completed.
func (c *Controller) reattach(sess *Session, lang domain.Language, qs []question.Question, fpID domain.FingerprintID) *Step {
	index := len(qs) - 1
	for i, q := range qs {
		if _, answered := sess.Answers[q.Key]; !answered {
			index = i
			break
		}
	}

	rt := &runtime{
		SessionID:     sess.ID,
		InviteID:      sess.InviteID,
		Language:      lang,
		FingerprintID: fpID,
		State:         StateAnswering,
		Questions:     qs,
		Index:         index,
	}
	c.reg.put(sess.RespondentID, rt)
	c.metrics.SessionResumed()

	step := c.questionStep(rt)
	step.Resumed = true
	step.Answered = len(sess.Answers)
	return step
}

// SubmitText records a text answer to the current question.
func (c *Controller) SubmitText(ctx context.Context, rid domain.RespondentID, text string) (*Step, error) {
	lock := c.reg.lock(rid)
	defer lock.Unlock()

	rt, ok := c.reg.get(rid)
	if !ok {
		return nil, funnelerrors.New(funnelerrors.CodeSessionExpired, "no active session")
	}
	if rt.State != StateAnswering {
		return nil, funnelerrors.New(funnelerrors.CodeUnexpectedInputType, "expected a media attachment")
	}

	answer := strings.TrimSpace(text)
	if answer == "" {
		return nil, funnelerrors.New(funnelerrors.CodeEmptyAnswer, "answer is empty")
	}
	return c.advance(ctx, rid, rt, answer)
}

// SubmitMedia records a media attachment: an in-questionnaire answer, the
// document photo, or the liveness video depending on the current state.
func (c *Controller) SubmitMedia(ctx context.Context, rid domain.RespondentID, m MediaAttachment) (*Step, error) {
	lock := c.reg.lock(rid)
	defer lock.Unlock()

	rt, ok := c.reg.get(rid)
	if !ok {
		return nil, funnelerrors.New(funnelerrors.CodeSessionExpired, "no active session")
	}

	switch rt.State {
	case StateAnswering:
		rt.Media = append(rt.Media, m)
		return c.advance(ctx, rid, rt, mediaAnswer(m))

	case StateAwaitingDocumentPhoto:
		if m.Kind == KindVideo || m.Kind == KindCircular {
			// Liveness arrived before the document; accept it and flag
			// the gap for the operator.
			return c.finishCapture(ctx, rid, rt, m)
		}
		if m.Kind != KindPhoto && m.Kind != KindDocument {
			return nil, funnelerrors.New(funnelerrors.CodeUnexpectedInputType, "expected a document photo")
		}
		ref := m
		rt.DocumentRef = &ref
		rt.State = StateAwaitingLivenessVideo
		c.metrics.MediaCaptured("document")
		return &Step{Kind: StepLivenessPrompt, Language: rt.Language}, nil

	case StateAwaitingLivenessVideo:
		if m.Kind != KindVideo && m.Kind != KindCircular {
			return nil, funnelerrors.New(funnelerrors.CodeUnexpectedInputType, "expected a liveness video")
		}
		return c.finishCapture(ctx, rid, rt, m)

	default:
		return nil, funnelerrors.New(funnelerrors.CodeUnexpectedInputType, "no input expected")
	}
}

// Cancel aborts the respondent's active session. Reports whether there was
// anything to cancel; cancelling nothing is not an error.
func (c *Controller) Cancel(ctx context.Context, rid domain.RespondentID) (bool, error) {
	lock := c.reg.lock(rid)
	defer lock.Unlock()

	cancelled, err := c.store.CancelActive(ctx, rid)
	if err != nil {
		return false, fmt.Errorf("cancel session: %w", err)
	}
	if _, ok := c.reg.get(rid); ok {
		c.reg.drop(rid)
		cancelled = true
	}
	if cancelled {
		c.metrics.SessionCancelled()
	}
	return cancelled, nil
}

// State reports the respondent's in-memory state, if any.
func (c *Controller) State(rid domain.RespondentID) (State, bool) {
	rt, ok := c.reg.get(rid)
	if !ok {
		return "", false
	}
	return rt.State, true
}

// advance checkpoints the answer, then moves the cursor. A failed
// checkpoint leaves the cursor where it was so the transport re-asks the
// same question.
func (c *Controller) advance(ctx context.Context, rid domain.RespondentID, rt *runtime, answer string) (*Step, error) {
	key := rt.Questions[rt.Index].Key
	if err := c.store.SaveAnswer(ctx, rt.SessionID, key, answer); err != nil {
		return nil, fmt.Errorf("save answer: %w", err)
	}
	c.metrics.AnswerSaved()

	rt.Index++
	if rt.Index < len(rt.Questions) {
		return c.questionStep(rt), nil
	}
	return c.complete(ctx, rid, rt)
}

// complete transitions the session to its terminal completed status, runs
// correlation, notifies the operator, and opens the capture tail. The
// notification fires once; a replayed completion is a no-op.
func (c *Controller) complete(ctx context.Context, rid domain.RespondentID, rt *runtime) (*Step, error) {
	err := c.store.Complete(ctx, rt.SessionID)
	switch {
	case errors.Is(err, sentinel.ErrInvalidState):
		// Already completed earlier; do not notify twice.
		rt.State = StateAwaitingDocumentPhoto
		return &Step{Kind: StepDocumentPrompt, Language: rt.Language}, nil
	case err != nil:
		return nil, fmt.Errorf("complete session: %w", err)
	}
	c.metrics.SessionCompleted()

	report := c.correlate(ctx, rt)
	c.notifyCompletion(ctx, rid, rt, report)

	rt.State = StateAwaitingDocumentPhoto
	return &Step{Kind: StepDocumentPrompt, Language: rt.Language}, nil
}

// correlate runs the match rules against the session's fingerprint.
// Failures degrade to an empty report; completion never blocks on matching.
func (c *Controller) correlate(ctx context.Context, rt *runtime) *fingerprint.Report {
	if c.matcher == nil || rt.FingerprintID.IsNil() {
		return nil
	}
	fp, err := c.prints.ByID(ctx, rt.FingerprintID)
	if err != nil {
		c.log.Warn("fingerprint lookup failed",
			slog.String("fingerprint_id", rt.FingerprintID.String()),
			slog.String("error", err.Error()))
		return nil
	}
	matches, err := c.matcher.Match(ctx, fp)
	if err != nil {
		c.log.Warn("correlation failed",
			slog.String("session_id", rt.SessionID.String()),
			slog.String("error", err.Error()))
		return nil
	}
	return fingerprint.BuildReport(matches)
}

func (c *Controller) notifyCompletion(ctx context.Context, rid domain.RespondentID, rt *runtime, report *fingerprint.Report) {
	sess, err := c.store.ByID(ctx, rt.SessionID)
	if err != nil {
		c.log.Error("load session for notification failed",
			slog.String("session_id", rt.SessionID.String()),
			slog.String("error", err.Error()))
		return
	}

	bundle := &notify.CompletionBundle{
		SessionID:        sess.ID,
		InviteID:         sess.InviteID,
		RespondentID:     rid,
		RespondentHandle: sess.RespondentHandle,
		RespondentName:   sess.RespondentName,
		MatchReport:      report,
		CompletedAt:      time.Now(),
	}
	if sess.CompletedAt != nil {
		bundle.CompletedAt = *sess.CompletedAt
	}

	for _, q := range rt.Questions {
		answer, ok := sess.Answers[q.Key]
		if !ok {
			continue
		}
		bundle.Answers = append(bundle.Answers, notify.AnsweredQuestion{
			Key:      q.Key,
			Question: q.DisplayText(rt.Language),
			Answer:   answer,
		})
	}
	for _, m := range rt.Media {
		bundle.Media = append(bundle.Media, mediaRef(m))
	}

	if inv, err := c.invites.ByID(ctx, sess.InviteID); err == nil {
		bundle.InviteDescription = inv.Description
		c.attachOperator(ctx, inv.OperatorID, &bundle.OperatorChatID, &bundle.OperatorUsername)
	}

	if !rt.FingerprintID.IsNil() {
		if fp, err := c.prints.ByID(ctx, rt.FingerprintID); err == nil {
			bundle.Fingerprint = &notify.FingerprintSummary{
				ID:               fp.ID,
				NetworkAddress:   fp.Signals.NetworkAddress,
				ScreenResolution: fp.Signals.ScreenResolution,
				Timezone:         fp.Signals.Timezone,
				Platform:         fp.Signals.Platform,
				Premium:          fp.Signals.Premium,
			}
		}
	}

	if err := c.notifier.SessionCompleted(ctx, bundle); err != nil {
		c.log.Error("completion notification failed",
			slog.String("session_id", sess.ID.String()),
			slog.String("error", err.Error()))
	}
}

// finishCapture concludes the media tail: liveness stored, operator
// notified, runtime discarded.
func (c *Controller) finishCapture(ctx context.Context, rid domain.RespondentID, rt *runtime, m MediaAttachment) (*Step, error) {
	ref := m
	rt.LivenessRef = &ref
	rt.LivenessKind = m.Kind
	c.metrics.MediaCaptured("liveness")

	bundle := &notify.VerificationBundle{
		SessionID:       rt.SessionID,
		RespondentID:    rid,
		Liveness:        refPtr(rt.LivenessRef),
		DocumentMissing: rt.DocumentRef == nil,
		CapturedAt:      time.Now(),
	}
	if rt.DocumentRef != nil {
		bundle.DocumentPhoto = refPtr(rt.DocumentRef)
	}
	if sess, err := c.store.ByID(ctx, rt.SessionID); err == nil {
		bundle.RespondentHandle = sess.RespondentHandle
		if inv, err := c.invites.ByID(ctx, sess.InviteID); err == nil {
			c.attachOperator(ctx, inv.OperatorID, &bundle.OperatorChatID, &bundle.OperatorUsername)
		}
	}
	if err := c.notifier.VerificationCaptured(ctx, bundle); err != nil {
		c.log.Error("verification notification failed",
			slog.String("session_id", rt.SessionID.String()),
			slog.String("error", err.Error()))
	}

	rt.State = StateDone
	c.reg.drop(rid)
	return &Step{Kind: StepDone, Language: rt.Language}, nil
}

func (c *Controller) attachOperator(ctx context.Context, id domain.AccountID, chatID *domain.RespondentID, username *string) {
	if c.accounts == nil {
		return
	}
	account, err := c.accounts.ByID(ctx, id)
	if err != nil {
		c.log.Warn("operator lookup failed",
			slog.String("operator_id", id.String()),
			slog.String("error", err.Error()))
		return
	}
	*chatID = account.ChatID
	*username = account.Username
}

func (c *Controller) questionStep(rt *runtime) *Step {
	q := rt.Questions[rt.Index]
	return &Step{
		Kind:     StepQuestion,
		Language: rt.Language,
		Question: q.DisplayText(rt.Language),
		Number:   rt.Index + 1,
		Total:    len(rt.Questions),
	}
}

// mediaAnswer renders the placeholder recorded in the answer map for an
// in-questionnaire media attachment.
func mediaAnswer(m MediaAttachment) string {
	var base string
	switch m.Kind {
	case KindPhoto:
		base = "[photo attached]"
	case KindVideo:
		base = "[video attached]"
	case KindCircular:
		base = "[video note attached]"
	case KindDocument:
		if m.FileName != "" {
			base = "[document attached: " + m.FileName + "]"
		} else {
			base = "[document attached]"
		}
	default:
		base = "[attachment]"
	}
	if caption := strings.TrimSpace(m.Caption); caption != "" {
		return base + " " + caption
	}
	return base
}

func mediaRef(m MediaAttachment) notify.MediaRef {
	return notify.MediaRef{
		Kind:     string(m.Kind),
		FileRef:  m.FileRef,
		FileName: m.FileName,
		Caption:  m.Caption,
	}
}

func refPtr(m *MediaAttachment) *notify.MediaRef {
	if m == nil {
		return nil
	}
	ref := mediaRef(*m)
	return &ref
}
