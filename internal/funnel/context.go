package funnel

import (
	"sync"

	"intake/internal/question"
	"intake/pkg/domain"
)

// runtime is the in-memory state of one active respondent: the question
// snapshot, the cursor, and the capture-tail references. Lost on restart;
// the durable answer map reconstructs the cursor on resume.
type runtime struct {
	SessionID     domain.SessionID
	InviteID      domain.InviteID
	Language      domain.Language
	FingerprintID domain.FingerprintID

	State     State
	Questions []question.Question
	Index     int

	Media        []MediaAttachment
	DocumentRef  *MediaAttachment
	LivenessRef  *MediaAttachment
	LivenessKind MediaKind
}

// registry holds per-respondent runtimes and serializes all controller work
// for one respondent behind a keyed mutex, so a double-tapped answer cannot
// advance the cursor twice.
//
// Runtimes are dropped on completion and cancel but kept for respondents who
// go silent mid-funnel, since sessions stay resumable indefinitely. Both maps
// grow with the number of distinct invited respondents per process lifetime,
// not with traffic.
type registry struct {
	mu       sync.Mutex
	runtimes map[domain.RespondentID]*runtime
	locks    map[domain.RespondentID]*sync.Mutex
}

func newRegistry() *registry {
	return &registry{
		runtimes: make(map[domain.RespondentID]*runtime),
		locks:    make(map[domain.RespondentID]*sync.Mutex),
	}
}

// lock acquires the respondent's mutex, creating it on first use.
func (r *registry) lock(rid domain.RespondentID) *sync.Mutex {
	r.mu.Lock()
	m, ok := r.locks[rid]
	if !ok {
		m = &sync.Mutex{}
		r.locks[rid] = m
	}
	r.mu.Unlock()
	m.Lock()
	return m
}

func (r *registry) get(rid domain.RespondentID) (*runtime, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.runtimes[rid]
	return rt, ok
}

func (r *registry) put(rid domain.RespondentID, rt *runtime) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runtimes[rid] = rt
}

func (r *registry) drop(rid domain.RespondentID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.runtimes, rid)
}
