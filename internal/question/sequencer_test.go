package question

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"intake/pkg/domain"
	"intake/pkg/sentinel"
)

type SequencerSuite struct {
	suite.Suite

	store *MemoryStore
	seq   *Sequencer
}

func TestSequencerSuite(t *testing.T) {
	suite.Run(t, new(SequencerSuite))
}

func (s *SequencerSuite) SetupTest() {
	s.store = NewMemory()
	s.seq = NewSequencer(s.store)
}

func (s *SequencerSuite) TestActiveOrderedByPosition() {
	ctx := context.Background()
	s.Require().NoError(s.store.Upsert(ctx, Question{Key: "city", Position: 2, Text: "City?", Active: true}))
	s.Require().NoError(s.store.Upsert(ctx, Question{Key: "name", Position: 1, Text: "Name?", Active: true}))
	s.Require().NoError(s.store.Upsert(ctx, Question{Key: "old", Position: 3, Text: "Old?", Active: false}))

	qs, err := s.seq.Active(ctx)
	s.Require().NoError(err)
	s.Require().Len(qs, 2)
	s.Equal("name", qs[0].Key)
	s.Equal("city", qs[1].Key)
}

func (s *SequencerSuite) TestDisplayTextLocalization() {
	text, err := EncodeTexts(map[domain.Language]string{
		domain.LanguageRussian: "Как вас зовут?",
		domain.LanguageEnglish: "What is your name?",
	})
	s.Require().NoError(err)
	q := Question{Key: "name", Text: text}

	s.Run("requested language", func() {
		s.Equal("Как вас зовут?", q.DisplayText(domain.LanguageRussian))
	})

	s.Run("falls back to english", func() {
		s.Equal("What is your name?", q.DisplayText(domain.LanguageArabic))
	})

	s.Run("legacy plain text", func() {
		legacy := Question{Key: "name", Text: "What is your name?"}
		s.Equal("What is your name?", legacy.DisplayText(domain.LanguageRussian))
	})
}

func (s *SequencerSuite) TestUpdateText() {
	ctx := context.Background()
	s.Require().NoError(s.store.Upsert(ctx, Question{Key: "name", Position: 1, Text: "Name?", Active: true}))

	s.Run("changes the text", func() {
		s.Require().NoError(s.store.UpdateText(ctx, "name", "Full name?"))
		qs, err := s.store.Active(ctx)
		s.Require().NoError(err)
		s.Require().Len(qs, 1)
		s.Equal("Full name?", qs[0].Text)
	})

	s.Run("unknown key", func() {
		s.ErrorIs(s.store.UpdateText(ctx, "missing", "x"), sentinel.ErrNotFound)
	})
}

func (s *SequencerSuite) TestDeactivate() {
	ctx := context.Background()
	s.Require().NoError(s.store.Upsert(ctx, Question{Key: "name", Position: 1, Text: "Name?", Active: true}))
	s.Require().NoError(s.store.Upsert(ctx, Question{Key: "city", Position: 2, Text: "City?", Active: true}))

	s.Run("removes the question from the sequence", func() {
		s.Require().NoError(s.store.Deactivate(ctx, "name"))
		qs, err := s.seq.Active(ctx)
		s.Require().NoError(err)
		s.Require().Len(qs, 1)
		s.Equal("city", qs[0].Key)
	})

	s.Run("keeps the row for seeding checks", func() {
		n, err := s.store.Count(ctx)
		s.Require().NoError(err)
		s.Equal(2, n)
	})

	s.Run("unknown key", func() {
		s.ErrorIs(s.store.Deactivate(ctx, "missing"), sentinel.ErrNotFound)
	})
}

func (s *SequencerSuite) TestSeedFromFileSkipsPopulatedStore() {
	ctx := context.Background()
	s.Require().NoError(s.store.Upsert(ctx, Question{Key: "existing", Position: 1, Text: "x", Active: true}))

	n, err := SeedFromFile(ctx, s.store, "does-not-exist.json")
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *SequencerSuite) TestSeedFromFile() {
	path := filepath.Join(s.T().TempDir(), "questions.json")
	data := `[
		{"key": "name", "text_ru": "Имя?", "text_en": "Name?", "text_ar": "الاسم؟"},
		{"key": "city", "text_ru": "Город?", "text_en": "City?", "text_ar": "المدينة؟"}
	]`
	s.Require().NoError(os.WriteFile(path, []byte(data), 0o600))

	ctx := context.Background()
	n, err := SeedFromFile(ctx, s.store, path)
	s.Require().NoError(err)
	s.Equal(2, n)

	qs, err := s.store.Active(ctx)
	s.Require().NoError(err)
	s.Require().Len(qs, 2)
	s.Equal("name", qs[0].Key)
	s.Equal("Name?", qs[0].DisplayText(domain.LanguageEnglish))
	s.Equal("المدينة؟", qs[1].DisplayText(domain.LanguageArabic))
}
