package domain

// Language is the invitation-level language tag driving respondent-facing
// text. The set is fixed; unknown tags fall back to English.
type Language string

const (
	LanguageRussian Language = "ru"
	LanguageEnglish Language = "en"
	LanguageArabic  Language = "ar"
)

// DefaultLanguage is used when an invitation carries no (or an unknown) tag.
const DefaultLanguage = LanguageEnglish

// ParseLanguage normalizes a stored tag, falling back to the default.
func ParseLanguage(s string) Language {
	switch Language(s) {
	case LanguageRussian, LanguageEnglish, LanguageArabic:
		return Language(s)
	}
	return DefaultLanguage
}

// Valid reports whether the tag is one of the supported languages.
func (l Language) Valid() bool {
	switch l {
	case LanguageRussian, LanguageEnglish, LanguageArabic:
		return true
	}
	return false
}
