package chat

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"intake/internal/fingerprint"
	"intake/internal/funnel"
	"intake/internal/identity"
	"intake/internal/invite"
	"intake/internal/notify"
	"intake/internal/question"
	"intake/internal/verification"
	"intake/pkg/domain"
)

// recordingMessenger captures outbound messages for assertions.
type recordingMessenger struct {
	texts       []string
	captureURLs []string
}

func (m *recordingMessenger) SendText(ctx context.Context, rid domain.RespondentID, text string) error {
	m.texts = append(m.texts, text)
	return nil
}

func (m *recordingMessenger) PromptCapture(ctx context.Context, rid domain.RespondentID, text, captureURL string) error {
	m.texts = append(m.texts, text)
	m.captureURLs = append(m.captureURLs, captureURL)
	return nil
}

func (m *recordingMessenger) last() string {
	if len(m.texts) == 0 {
		return ""
	}
	return m.texts[len(m.texts)-1]
}

type DispatcherSuite struct {
	suite.Suite

	sessions  *funnel.MemoryStore
	invites   *invite.MemoryStore
	prints    *fingerprint.MemoryStore
	messenger *recordingMessenger
	disp      *Dispatcher

	inv *invite.Invitation
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) SetupTest() {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.sessions = funnel.NewMemory()
	s.invites = invite.NewMemoryStore()
	s.prints = fingerprint.NewMemory()
	s.messenger = &recordingMessenger{}

	accounts := identity.NewMemoryStore()
	identitySvc := identity.NewService(accounts)
	operator := &identity.Account{
		ID:        domain.NewAccountID(),
		Username:  "operator",
		ChatID:    "op-chat",
		Active:    true,
		CreatedAt: time.Now(),
	}
	s.Require().NoError(accounts.Create(ctx, operator))

	s.inv = &invite.Invitation{
		ID:         domain.NewInviteID(),
		OperatorID: operator.ID,
		Code:       "welcome",
		Language:   domain.LanguageRussian,
		CreatedAt:  time.Now(),
	}
	s.Require().NoError(s.invites.Create(ctx, s.inv))

	qstore := question.NewMemory()
	for i, key := range []string{"name", "city"} {
		s.Require().NoError(qstore.Upsert(ctx, question.Question{
			Key: key, Position: i + 1, Text: key + "?", Active: true,
		}))
	}

	matcher := fingerprint.NewMatcher(s.prints, funnel.NewSessionDirectory(s.sessions), log, nil)
	ctrl := funnel.NewController(s.sessions, question.NewSequencer(qstore),
		s.invites, identitySvc, s.prints, matcher, notify.NewLogNotifier(log), log, nil)

	pending := verification.NewMemoryPending()
	tokens := verification.NewTokenIssuer("test-credential", time.Hour)
	gate := verification.NewGate(s.invites, identitySvc, funnel.NewActiveLookup(s.sessions),
		pending, s.prints, matcher, tokens, "https://capture.example", log)

	s.disp = NewDispatcher(gate, ctrl, s.sessions, s.invites, s.messenger, log)
}

// verify walks the capture leg: invite start, then a verified capture
// callback.
func (s *DispatcherSuite) verify(rid domain.RespondentID) {
	ctx := context.Background()
	s.Require().NoError(s.disp.HandleInviteStart(ctx, InviteStart{
		Respondent: Identity{ID: rid, Handle: "handle"},
		Code:       "welcome",
	}))
	s.Require().NotEmpty(s.messenger.captureURLs)

	fp := &fingerprint.Fingerprint{
		ID:           domain.NewFingerprintID(),
		RespondentID: rid,
		CreatedAt:    time.Now(),
	}
	s.Require().NoError(s.prints.Create(ctx, fp))

	s.Require().NoError(s.disp.HandleCaptureCompleted(ctx, CaptureCompleted{
		Respondent:    Identity{ID: rid, Handle: "handle"},
		Verified:      true,
		FingerprintID: fp.ID,
	}))
}

func (s *DispatcherSuite) TestInviteStartSendsLocalizedCapturePrompt() {
	ctx := context.Background()
	s.Require().NoError(s.disp.HandleInviteStart(ctx, InviteStart{
		Respondent: Identity{ID: "r-1"},
		Code:       "welcome",
	}))
	s.Equal(Text(domain.LanguageRussian, "capture_prompt"), s.messenger.last())
	s.Contains(s.messenger.captureURLs[0], "https://capture.example/capture?token=")
}

func (s *DispatcherSuite) TestInvalidInviteCode() {
	ctx := context.Background()
	s.Require().NoError(s.disp.HandleInviteStart(ctx, InviteStart{
		Respondent: Identity{ID: "r-2"},
		Code:       "bogus",
	}))
	s.Equal(Text(domain.DefaultLanguage, "invite_invalid"), s.messenger.last())
}

func (s *DispatcherSuite) TestVerifiedCaptureStartsQuestionnaire() {
	s.verify("r-3")

	// Welcome plus the first question, localized to the invite language.
	s.Require().GreaterOrEqual(len(s.messenger.texts), 2)
	s.Equal(Text(domain.LanguageRussian, "welcome"), s.messenger.texts[len(s.messenger.texts)-2])
	s.Contains(s.messenger.last(), "name?")
	s.True(strings.HasPrefix(s.messenger.last(), "Вопрос 1 из 2"))
}

func (s *DispatcherSuite) TestFailedCapture() {
	ctx := context.Background()
	s.Require().NoError(s.disp.HandleInviteStart(ctx, InviteStart{
		Respondent: Identity{ID: "r-4"},
		Code:       "welcome",
	}))
	s.Require().NoError(s.disp.HandleCaptureCompleted(ctx, CaptureCompleted{
		Respondent: Identity{ID: "r-4"},
		Verified:   false,
		Reason:     "integrity mismatch",
	}))
	s.Equal(Text(domain.LanguageRussian, "verify_failed"), s.messenger.last())
}

func (s *DispatcherSuite) TestFullFunnelThroughChat() {
	ctx := context.Background()
	s.verify("r-5")

	s.Require().NoError(s.disp.HandleText(ctx, TextMessage{
		Respondent: Identity{ID: "r-5"}, Text: "Alex",
	}))
	s.True(strings.HasPrefix(s.messenger.last(), "Вопрос 2 из 2"))

	s.Require().NoError(s.disp.HandleText(ctx, TextMessage{
		Respondent: Identity{ID: "r-5"}, Text: "Berlin",
	}))
	s.Equal(Text(domain.LanguageRussian, "document_prompt"), s.messenger.last())

	// Text during capture re-prompts for the document.
	s.Require().NoError(s.disp.HandleText(ctx, TextMessage{
		Respondent: Identity{ID: "r-5"}, Text: "what?",
	}))
	s.Equal(Text(domain.LanguageRussian, "expect_document"), s.messenger.last())

	s.Require().NoError(s.disp.HandleMedia(ctx, MediaMessage{
		Respondent: Identity{ID: "r-5"},
		Attachment: funnel.MediaAttachment{Kind: funnel.KindPhoto, FileRef: "doc"},
	}))
	s.Equal(Text(domain.LanguageRussian, "liveness_prompt"), s.messenger.last())

	s.Require().NoError(s.disp.HandleMedia(ctx, MediaMessage{
		Respondent: Identity{ID: "r-5"},
		Attachment: funnel.MediaAttachment{Kind: funnel.KindCircular, FileRef: "live"},
	}))
	s.Equal(Text(domain.LanguageRussian, "done"), s.messenger.last())
}

func (s *DispatcherSuite) TestRepeatInviteStartResumes() {
	ctx := context.Background()
	s.verify("r-6")
	s.Require().NoError(s.disp.HandleText(ctx, TextMessage{
		Respondent: Identity{ID: "r-6"}, Text: "Alex",
	}))

	// Following the same invite link again resumes instead of reverifying.
	before := len(s.messenger.captureURLs)
	s.Require().NoError(s.disp.HandleInviteStart(ctx, InviteStart{
		Respondent: Identity{ID: "r-6"},
		Code:       "welcome",
	}))
	s.Len(s.messenger.captureURLs, before)
	s.True(strings.HasPrefix(s.messenger.last(), "Вопрос 2 из 2"))
}

func (s *DispatcherSuite) TestUnpromptedTextIsIgnored() {
	ctx := context.Background()
	before := len(s.messenger.texts)
	s.Require().NoError(s.disp.HandleText(ctx, TextMessage{
		Respondent: Identity{ID: "stranger"}, Text: "hello",
	}))
	s.Len(s.messenger.texts, before)
}

func (s *DispatcherSuite) TestCancel() {
	ctx := context.Background()
	s.verify("r-7")

	s.Require().NoError(s.disp.HandleCancel(ctx, CancelCommand{
		Respondent: Identity{ID: "r-7"},
	}))
	s.Equal(Text(domain.LanguageRussian, "cancelled"), s.messenger.last())

	// Nothing active anymore; a second cancel stays silent.
	before := len(s.messenger.texts)
	s.Require().NoError(s.disp.HandleCancel(ctx, CancelCommand{
		Respondent: Identity{ID: "r-7"},
	}))
	s.Len(s.messenger.texts, before)
}
