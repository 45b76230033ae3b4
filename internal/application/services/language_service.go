package services

import (
	"strings"
	"unicode"

	"github.com/obafela/venuescout/backend/internal/domain/entities"
	"github.com/obafela/venuescout/backend/pkg/config"
)

// regionLanguage is the region→language policy table used to derive the
// provider-facing search language.
var regionLanguage = map[string]entities.Language{
	"JP": entities.LanguageJapanese,
	"KR": entities.LanguageKorean,
	"CN": entities.LanguageChinese,
	"TW": entities.LanguageChinese,
	"HK": entities.LanguageChinese,
	"TH": entities.LanguageThai,
	"RU": entities.LanguageRussian,
	"FR": entities.LanguageFrench,
	"ES": entities.LanguageSpanish,
	"MX": entities.LanguageSpanish,
	"US": entities.LanguageEnglish,
	"GB": entities.LanguageEnglish,
	"AU": entities.LanguageEnglish,
}

// LanguageService computes the per-request language context. Pure: no
// external calls, no stored request state.
type LanguageService struct {
	policy        config.SearchLanguagePolicy
	defaultRegion string
}

// NewLanguageService creates a language resolver with the configured
// search-language policy.
func NewLanguageService(policy config.SearchLanguagePolicy, defaultRegion string) *LanguageService {
	if defaultRegion == "" {
		defaultRegion = "JP"
	}
	return &LanguageService{policy: policy, defaultRegion: defaultRegion}
}

// Resolve computes the LanguageContext for a request. The result is an
// immutable snapshot; later stages must never re-derive it.
//
// Priority rules:
//   - queryLanguage: script detection over the query text
//   - assistantLanguage: always equals queryLanguage
//   - uiLanguage: client hint, else queryLanguage
//   - searchLanguage: per policy (region table, or mirrored queryLanguage
//     when supported)
func (s *LanguageService) Resolve(query string, uiHint entities.Language, region string) entities.LanguageContext {
	sources := make(map[string]entities.LanguageSource, 4)

	queryLang := DetectQueryLanguage(query)
	sources["query_language"] = entities.LanguageSourceQueryScript

	// Invariant: the assistant speaks the user's language
	sources["assistant_language"] = entities.LanguageSourceQueryScript

	uiLang := queryLang
	if uiHint.Valid() {
		uiLang = uiHint
		sources["ui_language"] = entities.LanguageSourceClientHint
	} else {
		sources["ui_language"] = entities.LanguageSourceQueryScript
	}

	searchLang, searchSource := s.searchLanguage(queryLang, region)
	sources["search_language"] = searchSource

	return entities.LanguageContext{
		UILanguage:        uiLang,
		QueryLanguage:     queryLang,
		AssistantLanguage: queryLang,
		SearchLanguage:    searchLang,
		Sources:           sources,
	}
}

func (s *LanguageService) searchLanguage(queryLang entities.Language, region string) (entities.Language, entities.LanguageSource) {
	if s.policy == config.SearchLanguagePolicyMirror && queryLang.Valid() {
		return queryLang, entities.LanguageSourceMirrorPolicy
	}

	if lang, ok := regionLanguage[strings.ToUpper(region)]; ok {
		return lang, entities.LanguageSourceRegionDefault
	}
	if lang, ok := regionLanguage[s.defaultRegion]; ok {
		return lang, entities.LanguageSourceFallback
	}
	return entities.LanguageEnglish, entities.LanguageSourceFallback
}

// DetectQueryLanguage detects the dominant script of the text and maps it
// to a language code. Deterministic; defaults to English for Latin text.
func DetectQueryLanguage(text string) entities.Language {
	var kana, hangul, han, cyrillic, thai int

	for _, r := range text {
		switch {
		case unicode.In(r, unicode.Hiragana, unicode.Katakana):
			kana++
		case unicode.In(r, unicode.Hangul):
			hangul++
		case unicode.In(r, unicode.Han):
			han++
		case unicode.In(r, unicode.Cyrillic):
			cyrillic++
		case unicode.In(r, unicode.Thai):
			thai++
		}
	}

	switch {
	case kana > 0:
		return entities.LanguageJapanese
	case hangul > 0:
		return entities.LanguageKorean
	case han > 0:
		// Han without kana: Chinese
		return entities.LanguageChinese
	case cyrillic > 0:
		return entities.LanguageRussian
	case thai > 0:
		return entities.LanguageThai
	}
	return entities.LanguageEnglish
}
