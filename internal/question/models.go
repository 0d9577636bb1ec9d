// Package question supplies the ordered, active question list and resolves
// localized question text. Read-only from the funnel's perspective; admin
// mutations go through the store directly.
package question

import (
	"encoding/json"

	"intake/pkg/domain"
)

// Question is one questionnaire entry. Text holds either a JSON object
// mapping language tags to localized text, or (legacy rows) the plain
// question text itself.
type Question struct {
	Key      string
	Position int
	Text     string
	Active   bool
}

// DisplayText resolves the question text for the requested language. JSON
// per-language maps fall back to English, then to the raw stored text;
// legacy plain-text rows are returned as-is.
func (q Question) DisplayText(lang domain.Language) string {
	var texts map[string]string
	if err := json.Unmarshal([]byte(q.Text), &texts); err != nil || texts == nil {
		return q.Text
	}
	if t, ok := texts[string(lang)]; ok && t != "" {
		return t
	}
	if t, ok := texts[string(domain.DefaultLanguage)]; ok && t != "" {
		return t
	}
	return q.Text
}

// EncodeTexts packs per-language texts into the stored JSON form.
func EncodeTexts(texts map[domain.Language]string) (string, error) {
	m := make(map[string]string, len(texts))
	for lang, t := range texts {
		m[string(lang)] = t
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
