package question

import (
	"context"

	"intake/pkg/domain"
)

// Sequencer is the stateless helper the session controller consults for the
// ordered active question list and localized display text.
type Sequencer struct {
	store Store
}

func NewSequencer(store Store) *Sequencer {
	return &Sequencer{store: store}
}

// Active returns the ordered active questions.
func (s *Sequencer) Active(ctx context.Context) ([]Question, error) {
	return s.store.Active(ctx)
}

// Text resolves the display text of q for the requested language.
func (s *Sequencer) Text(q Question, lang domain.Language) string {
	return q.DisplayText(lang)
}
