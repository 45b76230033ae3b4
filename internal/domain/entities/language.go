package entities

import "errors"

// ErrEmptyQuery is returned when a request carries no query text.
var ErrEmptyQuery = errors.New("query is required")

// Language is a closed set of language codes the system understands.
type Language string

const (
	LanguageUnknown  Language = ""
	LanguageEnglish  Language = "en"
	LanguageJapanese Language = "ja"
	LanguageKorean   Language = "ko"
	LanguageChinese  Language = "zh"
	LanguageThai     Language = "th"
	LanguageRussian  Language = "ru"
	LanguageFrench   Language = "fr"
	LanguageSpanish  Language = "es"
)

// Valid reports whether l is a known language code.
func (l Language) Valid() bool {
	switch l {
	case LanguageEnglish, LanguageJapanese, LanguageKorean, LanguageChinese,
		LanguageThai, LanguageRussian, LanguageFrench, LanguageSpanish:
		return true
	}
	return false
}

// LanguageSource records where a resolved language field came from, for
// observability.
type LanguageSource string

const (
	LanguageSourceClientHint    LanguageSource = "client_hint"
	LanguageSourceQueryScript   LanguageSource = "query_script"
	LanguageSourceRegionDefault LanguageSource = "region_default"
	LanguageSourceMirrorPolicy  LanguageSource = "mirror_policy"
	LanguageSourceFallback      LanguageSource = "fallback"
)

// LanguageContext is the per-request language snapshot. It is computed once
// when the request is accepted and threaded through every later stage as a
// value; deferred work must copy it, never re-derive it.
type LanguageContext struct {
	UILanguage        Language                  `json:"ui_language"`
	QueryLanguage     Language                  `json:"query_language"`
	AssistantLanguage Language                  `json:"assistant_language"`
	SearchLanguage    Language                  `json:"search_language"`
	Sources           map[string]LanguageSource `json:"sources,omitempty"`
}
