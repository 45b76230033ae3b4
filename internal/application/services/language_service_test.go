package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/obafela/venuescout/backend/internal/domain/entities"
	"github.com/obafela/venuescout/backend/pkg/config"
)

func TestDetectQueryLanguage(t *testing.T) {
	tests := []struct {
		query string
		want  entities.Language
	}{
		{"ramen near shibuya", entities.LanguageEnglish},
		{"渋谷 ラーメン", entities.LanguageJapanese},
		{"라멘 맛집", entities.LanguageKorean},
		{"北京烤鸭", entities.LanguageChinese},
		{"ресторан рядом", entities.LanguageRussian},
		{"ร้านอาหาร", entities.LanguageThai},
		// Kana anywhere wins over Han
		{"東京 そば", entities.LanguageJapanese},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectQueryLanguage(tt.query), "query %q", tt.query)
	}
}

func TestResolve_AssistantAlwaysMatchesQueryLanguage(t *testing.T) {
	svc := NewLanguageService(config.SearchLanguagePolicyRegion, "JP")

	queries := []string{
		"pizza",
		"渋谷 ラーメン",
		"라멘",
		"ресторан",
		"ร้านกาแฟ",
	}
	for _, q := range queries {
		lang := svc.Resolve(q, entities.LanguageFrench, "US")
		assert.Equal(t, lang.QueryLanguage, lang.AssistantLanguage, "query %q", q)
	}
}

func TestResolve_UIHintOnlyAffectsUILanguage(t *testing.T) {
	svc := NewLanguageService(config.SearchLanguagePolicyRegion, "JP")

	lang := svc.Resolve("ramen", entities.LanguageKorean, "JP")
	assert.Equal(t, entities.LanguageKorean, lang.UILanguage)
	assert.Equal(t, entities.LanguageEnglish, lang.QueryLanguage)
	assert.Equal(t, entities.LanguageEnglish, lang.AssistantLanguage)
	assert.Equal(t, entities.LanguageSourceClientHint, lang.Sources["ui_language"])
}

func TestResolve_SearchLanguageRegionPolicy(t *testing.T) {
	svc := NewLanguageService(config.SearchLanguagePolicyRegion, "JP")

	lang := svc.Resolve("ramen", "", "KR")
	assert.Equal(t, entities.LanguageKorean, lang.SearchLanguage)
	assert.Equal(t, entities.LanguageSourceRegionDefault, lang.Sources["search_language"])

	// Unknown region falls back to the default region's language
	lang = svc.Resolve("ramen", "", "ZZ")
	assert.Equal(t, entities.LanguageJapanese, lang.SearchLanguage)
	assert.Equal(t, entities.LanguageSourceFallback, lang.Sources["search_language"])
}

func TestResolve_SearchLanguageMirrorPolicy(t *testing.T) {
	svc := NewLanguageService(config.SearchLanguagePolicyMirror, "JP")

	// Supported query language mirrors into the search language
	lang := svc.Resolve("라멘 맛집", "", "JP")
	assert.Equal(t, entities.LanguageKorean, lang.SearchLanguage)
	assert.Equal(t, entities.LanguageSourceMirrorPolicy, lang.Sources["search_language"])
}

func TestResolve_SnapshotIsSelfContained(t *testing.T) {
	svc := NewLanguageService(config.SearchLanguagePolicyRegion, "JP")

	lang := svc.Resolve("渋谷 ラーメン", "", "JP")
	for _, field := range []string{"query_language", "assistant_language", "ui_language", "search_language"} {
		assert.Contains(t, lang.Sources, field)
	}
}
