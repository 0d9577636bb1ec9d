package question

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"intake/pkg/domain"
)

// seedEntry is one record of the JSON seed file. Localized texts are
// optional; missing languages fall back at display time.
type seedEntry struct {
	Key    string `json:"key"`
	TextRU string `json:"text_ru"`
	TextEN string `json:"text_en"`
	TextAR string `json:"text_ar"`
}

// SeedFromFile loads the question catalog from a JSON file when the store is
// empty. An already-populated store is left untouched so redeploys do not
// clobber admin edits.
func SeedFromFile(ctx context.Context, store Store, path string) (int, error) {
	n, err := store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read questions file: %w", err)
	}
	var entries []seedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("parse questions file: %w", err)
	}

	for i, e := range entries {
		if e.Key == "" {
			return 0, fmt.Errorf("questions file: entry %d has no key", i)
		}
		text, err := EncodeTexts(map[domain.Language]string{
			domain.LanguageRussian: e.TextRU,
			domain.LanguageEnglish: e.TextEN,
			domain.LanguageArabic:  e.TextAR,
		})
		if err != nil {
			return 0, fmt.Errorf("encode question %q: %w", e.Key, err)
		}
		if err := store.Upsert(ctx, Question{
			Key:      e.Key,
			Position: i + 1,
			Text:     text,
			Active:   true,
		}); err != nil {
			return 0, fmt.Errorf("seed question %q: %w", e.Key, err)
		}
	}
	return len(entries), nil
}
