package funnel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"intake/internal/fingerprint"
	"intake/internal/identity"
	"intake/internal/invite"
	"intake/internal/notify"
	"intake/internal/question"
	"intake/pkg/domain"
	"intake/pkg/funnelerrors"
)

// recordingNotifier captures bundles for assertions.
type recordingNotifier struct {
	mu            sync.Mutex
	completions   []*notify.CompletionBundle
	verifications []*notify.VerificationBundle
	fail          bool
}

func (n *recordingNotifier) SessionCompleted(ctx context.Context, b *notify.CompletionBundle) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("notifier down")
	}
	n.completions = append(n.completions, b)
	return nil
}

func (n *recordingNotifier) VerificationCaptured(ctx context.Context, b *notify.VerificationBundle) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("notifier down")
	}
	n.verifications = append(n.verifications, b)
	return nil
}

// flakyStore fails SaveAnswer on demand to test checkpoint semantics.
type flakyStore struct {
	Store
	failSave bool
}

func (s *flakyStore) SaveAnswer(ctx context.Context, id domain.SessionID, key, answer string) error {
	if s.failSave {
		return errors.New("store unavailable")
	}
	return s.Store.SaveAnswer(ctx, id, key, answer)
}

type ControllerSuite struct {
	suite.Suite

	store     *MemoryStore
	flaky     *flakyStore
	qstore    *question.MemoryStore
	invites   *invite.MemoryStore
	accounts  *identity.MemoryStore
	prints    *fingerprint.MemoryStore
	notifier  *recordingNotifier
	ctrl      *Controller

	inv      *invite.Invitation
	operator *identity.Account
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	ctx := context.Background()
	s.store = NewMemory()
	s.flaky = &flakyStore{Store: s.store}
	s.qstore = question.NewMemory()
	s.invites = invite.NewMemoryStore()
	s.accounts = identity.NewMemoryStore()
	s.prints = fingerprint.NewMemory()
	s.notifier = &recordingNotifier{}

	s.operator = &identity.Account{
		ID:        domain.NewAccountID(),
		Username:  "operator",
		ChatID:    "op-chat",
		Active:    true,
		CreatedAt: time.Now(),
	}
	s.Require().NoError(s.accounts.Create(ctx, s.operator))

	s.inv = &invite.Invitation{
		ID:          domain.NewInviteID(),
		OperatorID:  s.operator.ID,
		Code:        "welcome",
		Description: "pilot batch",
		Language:    domain.LanguageEnglish,
		CreatedAt:   time.Now(),
	}
	s.Require().NoError(s.invites.Create(ctx, s.inv))

	for i, key := range []string{"name", "city", "reason"} {
		s.Require().NoError(s.qstore.Upsert(ctx, question.Question{
			Key: key, Position: i + 1, Text: key + "?", Active: true,
		}))
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	matcher := fingerprint.NewMatcher(s.prints, NewSessionDirectory(s.store), log, nil)
	s.ctrl = NewController(s.flaky, question.NewSequencer(s.qstore),
		s.invites, identity.NewService(s.accounts), s.prints, matcher, s.notifier, log, nil)
}

func (s *ControllerSuite) storeFingerprint(rid domain.RespondentID, sig fingerprint.Signals) domain.FingerprintID {
	fp := &fingerprint.Fingerprint{
		ID:           domain.NewFingerprintID(),
		RespondentID: rid,
		Signals:      sig,
		CreatedAt:    time.Now(),
	}
	s.Require().NoError(s.prints.Create(context.Background(), fp))
	return fp.ID
}

// runQuestionnaire answers every question and returns the step after the
// last answer.
func (s *ControllerSuite) runQuestionnaire(rid domain.RespondentID) *Step {
	ctx := context.Background()
	step, err := s.ctrl.SubmitText(ctx, rid, "Alex")
	s.Require().NoError(err)
	s.Require().Equal(StepQuestion, step.Kind)

	step, err = s.ctrl.SubmitText(ctx, rid, "Berlin")
	s.Require().NoError(err)
	s.Require().Equal(StepQuestion, step.Kind)

	step, err = s.ctrl.SubmitText(ctx, rid, "curious")
	s.Require().NoError(err)
	return step
}

func (s *ControllerSuite) TestHappyPath() {
	ctx := context.Background()
	fpID := s.storeFingerprint("r-1", fingerprint.Signals{NetworkAddress: "203.0.113.7"})

	step, err := s.ctrl.Start(ctx, "r-1", "alex", "Alex B", s.inv, fpID)
	s.Require().NoError(err)
	s.Equal(StepQuestion, step.Kind)
	s.Equal(1, step.Number)
	s.Equal(3, step.Total)
	s.Equal("name?", step.Question)

	step = s.runQuestionnaire("r-1")
	s.Equal(StepDocumentPrompt, step.Kind)

	// Completion persisted and notified exactly once.
	sess, err := s.store.ActiveByRespondent(ctx, "r-1")
	s.Error(err)
	s.Nil(sess)
	s.Require().Len(s.notifier.completions, 1)
	bundle := s.notifier.completions[0]
	s.Equal("pilot batch", bundle.InviteDescription)
	s.Equal(domain.RespondentID("op-chat"), bundle.OperatorChatID)
	s.Require().Len(bundle.Answers, 3)
	s.Equal("name", bundle.Answers[0].Key)
	s.Equal("Alex", bundle.Answers[0].Answer)
	s.Require().NotNil(bundle.Fingerprint)
	s.Equal("203.0.113.7", bundle.Fingerprint.NetworkAddress)
	s.Nil(bundle.MatchReport)

	// Document photo then liveness video.
	step, err = s.ctrl.SubmitMedia(ctx, "r-1", MediaAttachment{Kind: KindPhoto, FileRef: "doc-1"})
	s.Require().NoError(err)
	s.Equal(StepLivenessPrompt, step.Kind)

	step, err = s.ctrl.SubmitMedia(ctx, "r-1", MediaAttachment{Kind: KindCircular, FileRef: "live-1"})
	s.Require().NoError(err)
	s.Equal(StepDone, step.Kind)

	s.Require().Len(s.notifier.verifications, 1)
	vb := s.notifier.verifications[0]
	s.False(vb.DocumentMissing)
	s.Equal("doc-1", vb.DocumentPhoto.FileRef)
	s.Equal("live-1", vb.Liveness.FileRef)

	_, ok := s.ctrl.State("r-1")
	s.False(ok)
}

func (s *ControllerSuite) TestReplayedStartResumesExistingSession() {
	ctx := context.Background()

	step, err := s.ctrl.Start(ctx, "r-1", "handle", "Name", s.inv, domain.FingerprintID{})
	s.Require().NoError(err)
	s.False(step.Resumed)

	_, err = s.ctrl.SubmitText(ctx, "r-1", "Alex")
	s.Require().NoError(err)
	first, err := s.store.ActiveByRespondent(ctx, "r-1")
	s.Require().NoError(err)

	// A duplicated capture verdict must not open a second session.
	step, err = s.ctrl.Start(ctx, "r-1", "handle", "Name", s.inv, domain.FingerprintID{})
	s.Require().NoError(err)
	s.True(step.Resumed)
	s.Equal(2, step.Number, "cursor lands on the first unanswered question")

	again, err := s.store.ActiveByRespondent(ctx, "r-1")
	s.Require().NoError(err)
	s.Equal(first.ID, again.ID)
}

func (s *ControllerSuite) TestStartFailsWithoutQuestions() {
	ctx := context.Background()
	empty := question.NewMemory()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := NewController(s.store, question.NewSequencer(empty),
		s.invites, identity.NewService(s.accounts), s.prints, nil, s.notifier, log, nil)

	_, err := ctrl.Start(ctx, "r-2", "", "", s.inv, domain.FingerprintID{})
	s.True(funnelerrors.IsCode(err, funnelerrors.CodeNoQuestionsConfigured))

	// No session was created.
	_, err = s.store.ActiveByRespondent(ctx, "r-2")
	s.Error(err)
}

func (s *ControllerSuite) TestEmptyAnswerRejectedWithoutAdvancing() {
	ctx := context.Background()
	_, err := s.ctrl.Start(ctx, "r-3", "", "", s.inv, domain.FingerprintID{})
	s.Require().NoError(err)

	_, err = s.ctrl.SubmitText(ctx, "r-3", "   ")
	s.True(funnelerrors.IsCode(err, funnelerrors.CodeEmptyAnswer))

	step, err := s.ctrl.SubmitText(ctx, "r-3", "Alex")
	s.Require().NoError(err)
	s.Equal(2, step.Number)
}

func (s *ControllerSuite) TestFailedCheckpointDoesNotAdvance() {
	ctx := context.Background()
	_, err := s.ctrl.Start(ctx, "r-4", "", "", s.inv, domain.FingerprintID{})
	s.Require().NoError(err)

	s.flaky.failSave = true
	_, err = s.ctrl.SubmitText(ctx, "r-4", "Alex")
	s.Require().Error(err)

	// Same question is asked again once the store recovers.
	s.flaky.failSave = false
	step, err := s.ctrl.SubmitText(ctx, "r-4", "Alex")
	s.Require().NoError(err)
	s.Equal(2, step.Number)

	sess, err := s.store.ActiveByRespondent(ctx, "r-4")
	s.Require().NoError(err)
	s.Equal("Alex", sess.Answers["name"])
}

func (s *ControllerSuite) TestResumeFromDurableAnswers() {
	ctx := context.Background()
	_, err := s.ctrl.Start(ctx, "r-5", "handle", "Name", s.inv, domain.FingerprintID{})
	s.Require().NoError(err)
	_, err = s.ctrl.SubmitText(ctx, "r-5", "Alex")
	s.Require().NoError(err)

	// Simulate a restart: rebuild the controller, in-memory state is gone.
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := NewController(s.store, question.NewSequencer(s.qstore),
		s.invites, identity.NewService(s.accounts), s.prints, nil, s.notifier, log, nil)

	step, err := ctrl.Resume(ctx, "r-5")
	s.Require().NoError(err)
	s.True(step.Resumed)
	s.Equal(1, step.Answered)
	s.Equal(2, step.Number)
	s.Equal("city?", step.Question)
}

func (s *ControllerSuite) TestResumeAllAnsweredFallsBackToLastQuestion() {
	ctx := context.Background()
	_, err := s.ctrl.Start(ctx, "r-6", "", "", s.inv, domain.FingerprintID{})
	s.Require().NoError(err)
	sess, err := s.store.ActiveByRespondent(ctx, "r-6")
	s.Require().NoError(err)

	// Crash after the last SaveAnswer but before Complete: all keys
	// present, status still in_progress.
	for _, key := range []string{"name", "city", "reason"} {
		s.Require().NoError(s.store.SaveAnswer(ctx, sess.ID, key, "x"))
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := NewController(s.store, question.NewSequencer(s.qstore),
		s.invites, identity.NewService(s.accounts), s.prints, nil, s.notifier, log, nil)

	step, err := ctrl.Resume(ctx, "r-6")
	s.Require().NoError(err)
	s.Equal(3, step.Number)

	// Re-answering the last question completes the session.
	step, err = ctrl.SubmitText(ctx, "r-6", "final")
	s.Require().NoError(err)
	s.Equal(StepDocumentPrompt, step.Kind)
}

func (s *ControllerSuite) TestResumeWithoutActiveSessionExpires() {
	_, err := s.ctrl.Resume(context.Background(), "r-7")
	s.True(funnelerrors.IsCode(err, funnelerrors.CodeSessionExpired))
}

func (s *ControllerSuite) TestMediaAnswerRecordsPlaceholder() {
	ctx := context.Background()
	_, err := s.ctrl.Start(ctx, "r-8", "", "", s.inv, domain.FingerprintID{})
	s.Require().NoError(err)

	step, err := s.ctrl.SubmitMedia(ctx, "r-8", MediaAttachment{
		Kind: KindPhoto, FileRef: "f-1", Caption: "my street",
	})
	s.Require().NoError(err)
	s.Equal(2, step.Number)

	sess, err := s.store.ActiveByRespondent(ctx, "r-8")
	s.Require().NoError(err)
	s.Equal("[photo attached] my street", sess.Answers["name"])
}

func (s *ControllerSuite) TestLivenessWithoutDocumentFlagsGap() {
	ctx := context.Background()
	_, err := s.ctrl.Start(ctx, "r-9", "", "", s.inv, domain.FingerprintID{})
	s.Require().NoError(err)
	step := s.runQuestionnaire("r-9")
	s.Require().Equal(StepDocumentPrompt, step.Kind)

	// Video arrives while a document photo was expected.
	step, err = s.ctrl.SubmitMedia(ctx, "r-9", MediaAttachment{Kind: KindVideo, FileRef: "live-9"})
	s.Require().NoError(err)
	s.Equal(StepDone, step.Kind)

	s.Require().Len(s.notifier.verifications, 1)
	vb := s.notifier.verifications[0]
	s.True(vb.DocumentMissing)
	s.Nil(vb.DocumentPhoto)
}

func (s *ControllerSuite) TestUnexpectedInputDuringCapture() {
	ctx := context.Background()
	_, err := s.ctrl.Start(ctx, "r-10", "", "", s.inv, domain.FingerprintID{})
	s.Require().NoError(err)
	s.runQuestionnaire("r-10")

	// Text while a document is expected.
	_, err = s.ctrl.SubmitText(ctx, "r-10", "here you go")
	s.True(funnelerrors.IsCode(err, funnelerrors.CodeUnexpectedInputType))

	_, err = s.ctrl.SubmitMedia(ctx, "r-10", MediaAttachment{Kind: KindPhoto, FileRef: "d"})
	s.Require().NoError(err)

	// Photo while a liveness video is expected.
	_, err = s.ctrl.SubmitMedia(ctx, "r-10", MediaAttachment{Kind: KindPhoto, FileRef: "d2"})
	s.True(funnelerrors.IsCode(err, funnelerrors.CodeUnexpectedInputType))
}

func (s *ControllerSuite) TestNotifierFailureDoesNotBlockProgress() {
	ctx := context.Background()
	s.notifier.fail = true
	_, err := s.ctrl.Start(ctx, "r-11", "", "", s.inv, domain.FingerprintID{})
	s.Require().NoError(err)

	step := s.runQuestionnaire("r-11")
	s.Equal(StepDocumentPrompt, step.Kind)

	sess, err := s.store.CountCompletedByInvite(ctx, s.inv.ID)
	s.Require().NoError(err)
	s.Equal(1, sess)
}

func (s *ControllerSuite) TestCompletionRunsCorrelation() {
	ctx := context.Background()

	// Seed history from another respondent on the same network.
	s.storeFingerprint("earlier", fingerprint.Signals{NetworkAddress: "203.0.113.7"})

	fpID := s.storeFingerprint("r-12", fingerprint.Signals{NetworkAddress: "203.0.113.7"})
	_, err := s.ctrl.Start(ctx, "r-12", "", "", s.inv, fpID)
	s.Require().NoError(err)
	s.runQuestionnaire("r-12")

	s.Require().Len(s.notifier.completions, 1)
	report := s.notifier.completions[0].MatchReport
	s.Require().True(report.Suspicious())
	s.Require().Len(report.Groups, 1)
	s.Equal(fingerprint.MatchNetworkAddress, report.Groups[0].Type)
	s.Equal(domain.RespondentID("earlier"), report.Groups[0].Samples[0].RespondentID)
}

func (s *ControllerSuite) TestCancel() {
	ctx := context.Background()
	_, err := s.ctrl.Start(ctx, "r-13", "", "", s.inv, domain.FingerprintID{})
	s.Require().NoError(err)

	cancelled, err := s.ctrl.Cancel(ctx, "r-13")
	s.Require().NoError(err)
	s.True(cancelled)

	_, ok := s.ctrl.State("r-13")
	s.False(ok)
	_, err = s.store.ActiveByRespondent(ctx, "r-13")
	s.Error(err)

	// Cancelling again is a silent no-op.
	cancelled, err = s.ctrl.Cancel(ctx, "r-13")
	s.Require().NoError(err)
	s.False(cancelled)
}
