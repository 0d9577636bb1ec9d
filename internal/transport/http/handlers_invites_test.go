package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"intake/internal/identity"
	"intake/internal/invite"
	"intake/pkg/domain"
)

type InviteHandlerSuite struct {
	suite.Suite

	accounts *identity.MemoryStore
	server   *httptest.Server
}

func TestInviteHandlerSuite(t *testing.T) {
	suite.Run(t, new(InviteHandlerSuite))
}

func (s *InviteHandlerSuite) SetupTest() {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.accounts = identity.NewMemoryStore()
	s.Require().NoError(s.accounts.Create(context.Background(), &identity.Account{
		ID:        domain.NewAccountID(),
		Username:  "alice",
		Active:    true,
		CreatedAt: time.Now(),
	}))
	s.Require().NoError(s.accounts.Create(context.Background(), &identity.Account{
		ID:        domain.NewAccountID(),
		Username:  "retired",
		Active:    false,
		CreatedAt: time.Now(),
	}))

	invites := invite.NewService(invite.NewMemoryStore(), nil)
	handler := NewInviteHandler(invites, identity.NewService(s.accounts))

	s.server = httptest.NewServer(NewRouter(log, handler))
	s.T().Cleanup(s.server.Close)
}

func (s *InviteHandlerSuite) create(body string) (*http.Response, inviteResponse) {
	resp, err := http.Post(s.server.URL+"/operator/invites", "application/json",
		strings.NewReader(body))
	s.Require().NoError(err)
	defer resp.Body.Close()

	var out inviteResponse
	if resp.StatusCode == http.StatusCreated {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func (s *InviteHandlerSuite) TestCreateAndList() {
	resp, created := s.create(`{"operator":"alice","description":"ru funnel","language":"ru"}`)
	s.Equal(http.StatusCreated, resp.StatusCode)
	s.NotEmpty(created.Code)
	s.Equal("ru funnel", created.Description)
	s.Equal("ru", created.Language)

	listResp, err := http.Get(s.server.URL + "/operator/invites?operator=alice")
	s.Require().NoError(err)
	defer listResp.Body.Close()
	s.Equal(http.StatusOK, listResp.StatusCode)

	var listed []inviteResponse
	s.Require().NoError(json.NewDecoder(listResp.Body).Decode(&listed))
	s.Require().Len(listed, 1)
	s.Equal(created.Code, listed[0].Code)
	s.Require().NotNil(listed[0].Completed)
	s.Equal(0, *listed[0].Completed)
}

func (s *InviteHandlerSuite) TestUnknownLanguageFallsBack() {
	resp, created := s.create(`{"operator":"alice","description":"x","language":"xx"}`)
	s.Equal(http.StatusCreated, resp.StatusCode)
	s.Equal(string(domain.DefaultLanguage), created.Language)
}

func (s *InviteHandlerSuite) TestRejectsUnknownOperator() {
	resp, _ := s.create(`{"operator":"nobody","description":"x"}`)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *InviteHandlerSuite) TestRejectsInactiveOperator() {
	resp, _ := s.create(`{"operator":"retired","description":"x"}`)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *InviteHandlerSuite) TestRejectsMissingOperator() {
	req, err := http.NewRequest(http.MethodGet, s.server.URL+"/operator/invites", bytes.NewReader(nil))
	s.Require().NoError(err)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}
