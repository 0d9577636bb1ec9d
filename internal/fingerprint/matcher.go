package fingerprint

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"intake/internal/fingerprint/metrics"
	"intake/pkg/domain"
)

// MatchType names the correlation rule that produced a match.
type MatchType string

const (
	MatchNetworkAddress MatchType = "network_address"
	MatchCanvasHash     MatchType = "canvas_hash"
	MatchDeviceCombo    MatchType = "device_combo"
)

// Loopback and blank addresses are shared by everyone behind a proxy or a
// misconfigured capture; matching on them would flag every respondent.
var excludedAddresses = map[string]struct{}{
	"127.0.0.1": {},
	"::1":       {},
	"":          {},
}

// canvas_hash carries "error" when the capture script failed to render.
var excludedCanvasHashes = map[string]struct{}{
	"":      {},
	"error": {},
}

// SessionInfo is what the matcher can learn about the session a historical
// fingerprint belongs to. Implemented by the funnel package.
type SessionInfo struct {
	SessionID        domain.SessionID
	RespondentHandle string
	RespondentName   string
	Completed        bool
}

// SessionDirectory resolves session details for match enrichment.
type SessionDirectory interface {
	SessionInfo(ctx context.Context, id domain.SessionID) (*SessionInfo, error)
}

// Match is one historical fingerprint correlated with the subject.
type Match struct {
	Type        MatchType
	Fingerprint *Fingerprint
	Session     *SessionInfo
}

// Matcher runs the three correlation rules against stored history. Rules
// run concurrently; each rule's hits are deduplicated by fingerprint ID and
// the subject's own records are never reported.
type Matcher struct {
	store    Store
	sessions SessionDirectory
	log      *slog.Logger
	metrics  *metrics.Metrics
}

func NewMatcher(store Store, sessions SessionDirectory, log *slog.Logger, m *metrics.Metrics) *Matcher {
	return &Matcher{store: store, sessions: sessions, log: log, metrics: m}
}

// Match correlates subject against history. A subject with no matchable
// signals yields an empty result, not an error.
func (m *Matcher) Match(ctx context.Context, subject *Fingerprint) ([]Match, error) {
	start := time.Now()

	var (
		mu  sync.Mutex
		out []Match
	)
	collect := func(typ MatchType, fps []*Fingerprint) {
		mu.Lock()
		defer mu.Unlock()

		seen := make(map[domain.FingerprintID]struct{}, len(fps))
		for _, fp := range fps {
			if fp.RespondentID == subject.RespondentID {
				continue
			}
			if _, dup := seen[fp.ID]; dup {
				continue
			}
			seen[fp.ID] = struct{}{}
			out = append(out, Match{Type: typ, Fingerprint: fp})
			m.metrics.MatchFound(string(typ))
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if _, excluded := excludedAddresses[subject.Signals.NetworkAddress]; !excluded {
		g.Go(func() error {
			fps, err := m.store.ByNetworkAddress(gctx, subject.Signals.NetworkAddress, subject.RespondentID)
			if err != nil {
				return fmt.Errorf("network address rule: %w", err)
			}
			collect(MatchNetworkAddress, fps)
			return nil
		})
	}

	if _, excluded := excludedCanvasHashes[subject.Signals.CanvasHash]; !excluded {
		g.Go(func() error {
			fps, err := m.store.ByCanvasHash(gctx, subject.Signals.CanvasHash, subject.RespondentID)
			if err != nil {
				return fmt.Errorf("canvas hash rule: %w", err)
			}
			collect(MatchCanvasHash, fps)
			return nil
		})
	}

	if subject.Signals.DeviceCombo() {
		g.Go(func() error {
			fps, err := m.store.ByDeviceCombo(gctx,
				subject.Signals.ScreenResolution, subject.Signals.Timezone,
				subject.Signals.Platform, subject.RespondentID)
			if err != nil {
				return fmt.Errorf("device combo rule: %w", err)
			}
			collect(MatchDeviceCombo, fps)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		m.metrics.MatchFailed()
		return nil, err
	}
	m.metrics.MatchCompleted(time.Since(start))

	m.enrich(ctx, out)
	return out, nil
}

// enrich attaches session details where a matched fingerprint is linked to
// a session. Lookup failures are logged and skipped; a match without
// context is still a match.
func (m *Matcher) enrich(ctx context.Context, matches []Match) {
	if m.sessions == nil {
		return
	}
	cache := make(map[domain.SessionID]*SessionInfo)
	for i := range matches {
		sid := matches[i].Fingerprint.SessionID
		if sid.IsNil() {
			continue
		}
		info, ok := cache[sid]
		if !ok {
			var err error
			info, err = m.sessions.SessionInfo(ctx, sid)
			if err != nil {
				if m.log != nil {
					m.log.Warn("match enrichment failed",
						slog.String("session_id", sid.String()),
						slog.String("error", err.Error()))
				}
				cache[sid] = nil
				continue
			}
			cache[sid] = info
		}
		matches[i].Session = info
	}
}
