package httptransport

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"intake/internal/chat"
	"intake/internal/fingerprint"
	"intake/internal/invite"
	"intake/internal/verification"
	"intake/pkg/domain"
)

const testCredential = "123456:test-bot-credential"

// signInitData builds a correctly signed integrity token the way the chat
// platform does.
func signInitData(t *testing.T, fields map[string]string) string {
	t.Helper()

	lines := make([]string, 0, len(fields))
	values := url.Values{}
	for k, v := range fields {
		lines = append(lines, k+"="+v)
		values.Set(k, v)
	}
	sort.Strings(lines)

	keyMAC := hmac.New(sha256.New, []byte("WebAppData"))
	keyMAC.Write([]byte(testCredential))
	mac := hmac.New(sha256.New, keyMAC.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))
	values.Set("hash", hex.EncodeToString(mac.Sum(nil)))

	return values.Encode()
}

type noStaff struct{}

func (noStaff) IsStaff(ctx context.Context, rid domain.RespondentID) (bool, error) {
	return false, nil
}

type recordingEvents struct {
	completed []chat.CaptureCompleted
}

func (r *recordingEvents) HandleCaptureCompleted(ctx context.Context, ev chat.CaptureCompleted) error {
	r.completed = append(r.completed, ev)
	return nil
}

type CaptureHandlerSuite struct {
	suite.Suite

	prints  *fingerprint.MemoryStore
	pending *verification.MemoryPendingStore
	tokens  *verification.TokenIssuer
	events  *recordingEvents
	server  *httptest.Server

	inviteID domain.InviteID
}

func TestCaptureHandlerSuite(t *testing.T) {
	suite.Run(t, new(CaptureHandlerSuite))
}

func (s *CaptureHandlerSuite) SetupTest() {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	invites := invite.NewMemoryStore()
	inv := &invite.Invitation{
		ID:        domain.NewInviteID(),
		Code:      "test-code",
		Language:  domain.LanguageEnglish,
		CreatedAt: time.Now(),
	}
	s.Require().NoError(invites.Create(context.Background(), inv))
	s.inviteID = inv.ID

	s.prints = fingerprint.NewMemory()
	s.pending = verification.NewMemoryPending()
	s.tokens = verification.NewTokenIssuer(testCredential, time.Hour)
	s.events = &recordingEvents{}

	gate := verification.NewGate(invites, noStaff{}, nil, s.pending, s.prints,
		nil, s.tokens, "https://capture.example", log)
	handler := NewCaptureHandler(gate, s.tokens, s.events, testCredential, log)

	s.server = httptest.NewServer(NewRouter(log, handler))
	s.T().Cleanup(s.server.Close)
}

func (s *CaptureHandlerSuite) issueToken(rid domain.RespondentID) string {
	token, err := s.tokens.Issue(rid, s.inviteID)
	s.Require().NoError(err)
	return token
}

func (s *CaptureHandlerSuite) postCapture(body map[string]any) (*http.Response, captureResponse) {
	raw, err := json.Marshal(body)
	s.Require().NoError(err)

	req, err := http.NewRequest(http.MethodPost, s.server.URL+"/api/capture", bytes.NewReader(raw))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)")

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var out captureResponse
	if resp.StatusCode == http.StatusOK {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func (s *CaptureHandlerSuite) TestPageServedForValidToken() {
	resp, err := http.Get(s.server.URL + "/capture?token=" + url.QueryEscape(s.issueToken("42")))
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(resp.Header.Get("Content-Type"), "text/html")

	page, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Contains(string(page), "/api/capture")
}

func (s *CaptureHandlerSuite) TestPageRejectsBadToken() {
	resp, err := http.Get(s.server.URL + "/capture?token=garbage")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *CaptureHandlerSuite) TestVerifiedSubmitContinuesFunnel() {
	ctx := context.Background()
	rid := domain.RespondentID("42")
	s.Require().NoError(s.pending.Put(ctx, &verification.Pending{
		RespondentID: rid,
		InviteID:     s.inviteID,
		CreatedAt:    time.Now(),
	}))

	resp, out := s.postCapture(map[string]any{
		"token": s.issueToken(rid),
		"init_data": signInitData(s.T(), map[string]string{
			"user":      `{"id":42,"is_premium":true}`,
			"auth_date": "1700000000",
		}),
		"payload": map[string]string{
			"screen_resolution": "390x844",
			"timezone":          "Europe/Berlin",
			"canvas_hash":       "aabbccdd",
		},
	})
	s.Equal(http.StatusOK, resp.StatusCode)
	s.True(out.Success)
	s.True(out.Verified)
	s.NotEmpty(out.FingerprintID)

	fp, err := s.prints.LatestByRespondent(ctx, rid)
	s.Require().NoError(err)
	s.Equal("203.0.113.7", fp.Signals.NetworkAddress, "server fills the first forwarded hop")
	s.True(fp.Signals.Premium)
	s.NotEmpty(fp.Signals.UserAgent, "user agent falls back to the request header")

	s.Require().Len(s.events.completed, 1)
	ev := s.events.completed[0]
	s.Equal(rid, ev.Respondent.ID)
	s.True(ev.Verified)
	s.Equal(s.inviteID, ev.InviteID)
	s.False(ev.FingerprintID.IsNil())
}

func (s *CaptureHandlerSuite) TestTamperedInitDataStoredAnonymously() {
	ctx := context.Background()
	rid := domain.RespondentID("42")
	s.Require().NoError(s.pending.Put(ctx, &verification.Pending{
		RespondentID: rid,
		InviteID:     s.inviteID,
		CreatedAt:    time.Now(),
	}))

	signed := signInitData(s.T(), map[string]string{
		"user":      `{"id":42}`,
		"auth_date": "1700000000",
	})
	values, err := url.ParseQuery(signed)
	s.Require().NoError(err)
	values.Set("user", `{"id":99}`)

	resp, out := s.postCapture(map[string]any{
		"token":     s.issueToken(rid),
		"init_data": values.Encode(),
		"payload":   map[string]string{"canvas_hash": "aabbccdd"},
	})
	s.Equal(http.StatusOK, resp.StatusCode)
	s.True(out.Success, "tampered captures are still stored")
	s.False(out.Verified)

	fp, err := s.prints.LatestByRespondent(ctx, rid)
	s.Require().NoError(err)
	s.Equal("aabbccdd", fp.Signals.CanvasHash)

	s.Empty(s.events.completed, "unverified captures never continue the funnel")
}

func (s *CaptureHandlerSuite) TestSubmitWithoutPendingStoresOnly() {
	rid := domain.RespondentID("42")
	_, out := s.postCapture(map[string]any{
		"token": s.issueToken(rid),
		"init_data": signInitData(s.T(), map[string]string{
			"user":      `{"id":42}`,
			"auth_date": "1700000000",
		}),
		"payload": map[string]string{"canvas_hash": "aabbccdd"},
	})
	s.True(out.Success)
	s.True(out.Verified)
	s.Empty(s.events.completed, "no pending verification means nothing to continue")
}

func (s *CaptureHandlerSuite) TestMalformedBodyRejected() {
	resp, err := http.Post(s.server.URL+"/api/capture", "application/json",
		strings.NewReader("{not json"))
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}
