package steps

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/yungbote/carousel-backend/internal/domain/carousel"
)

func howToArticle() *carousel.Article {
	return &carousel.Article{
		ID:           uuid.MustParse("8d1f6a3e-2c4b-4d7e-9a11-3f5e7c9b0d21"),
		Title:        "Brew Better Coffee at Home",
		Introduction: "Great coffee starts long before the kettle boils.",
		Sections: []string{
			"## Buy whole beans\nGround coffee goes stale within days.",
			"## Weigh everything\nA scale beats scoops for consistency.",
			"## Mind the water\nAim for just off the boil.",
			"## Clean your gear\nOld oils turn bitter.",
		},
		Conclusion:  "Small habits add up to a better cup.",
		ArticleType: carousel.ArticleTypeHowTo,
	}
}

func TestNormalizeCaptionsAcceptsSlidesArray(t *testing.T) {
	article := howToArticle()
	format := AnalyzeFormat(article, DefaultPresets())
	data := map[string]any{"slides": []any{
		map[string]any{"slideNumber": 9, "headline": "Better coffee starts with you", "imagePrompt": "warm amber haze"},
		map[string]any{"slide_number": 1, "headline_text": "Buy whole beans", "caption": "Stale grounds flatten flavor", "image_prompt": "deep brown swirls"},
		map[string]any{"slide": 3, "headline": "Weigh every dose", "caption": "drop me", "image_prompt": "copper light"},
		map[string]any{"headline": "Heat matters", "caption": nil, "image_prompt": "steam"},
	}}
	got, err := NormalizeCaptions(data, format, article, DefaultPresets())
	if err != nil {
		t.Fatalf("NormalizeCaptions: %v", err)
	}
	if len(got) != format.PageCount {
		t.Fatalf("len: want=%d got=%d", format.PageCount, len(got))
	}
	for i, c := range got {
		if c.SlideNumber != i+1 || c.SlideType != format.Structure[i] {
			t.Fatalf("slide %d: numbering/type %+v", i+1, c)
		}
		if c.Headline == "" || c.ImagePrompt == "" {
			t.Fatalf("slide %d: empty fields %+v", i+1, c)
		}
	}
	if got[0].Headline != "Better coffee starts with you" || got[0].ImagePrompt != "warm amber haze" {
		t.Fatalf("slide 1 camelCase keys lost: %+v", got[0])
	}
	if got[1].Caption == nil || *got[1].Caption != "Stale grounds flatten flavor" {
		t.Fatalf("slide 2 caption: %+v", got[1].Caption)
	}
	if got[2].Caption != nil {
		t.Fatalf("slide 3 is not split layout; caption must be dropped")
	}
	if got[3].Caption != nil {
		t.Fatalf("slide 4 null caption must stay nil")
	}
	if got[4].Headline != format.SuggestedHeadlines[4] {
		t.Fatalf("missing slide 5 should use suggestion: got=%q", got[4].Headline)
	}
}

func TestNormalizeCaptionsAcceptsKeyedObjects(t *testing.T) {
	format := AnalyzeFormat(&carousel.Article{Title: "X"}, DefaultPresets())
	data := map[string]any{
		"slide2":   map[string]any{"headline": "Second"},
		"slide1":   map[string]any{"headline": "First"},
		"slide_10": map[string]any{"headline": "Tenth"},
		"notes":    "ignored",
	}
	got, err := NormalizeCaptions(data, format, nil, DefaultPresets())
	if err != nil {
		t.Fatalf("NormalizeCaptions: %v", err)
	}
	if got[0].Headline != "First" || got[1].Headline != "Second" || got[2].Headline != "Tenth" {
		t.Fatalf("keyed order wrong: %q %q %q", got[0].Headline, got[1].Headline, got[2].Headline)
	}
	if _, err := NormalizeCaptions(map[string]any{"foo": 1}, format, nil, DefaultPresets()); err == nil {
		t.Fatalf("want error when no slides present")
	}
}

func TestNormalizeCaptionsTruncates(t *testing.T) {
	format := AnalyzeFormat(&carousel.Article{Title: "X"}, DefaultPresets())
	long := strings.Repeat("abcdefghij", 60)
	data := map[string]any{"slides": []any{
		map[string]any{"headline": long, "image_prompt": long},
		map[string]any{"headline": long, "caption": long, "image_prompt": long},
	}}
	got, err := NormalizeCaptions(data, format, nil, DefaultPresets())
	if err != nil {
		t.Fatalf("NormalizeCaptions: %v", err)
	}
	if n := utf8.RuneCountInString(got[0].Headline); n > maxHeadlineRunes {
		t.Fatalf("headline runes: want<=%d got=%d", maxHeadlineRunes, n)
	}
	if n := utf8.RuneCountInString(*got[1].Caption); n > maxCaptionRunes {
		t.Fatalf("caption runes: want<=%d got=%d", maxCaptionRunes, n)
	}
	if n := utf8.RuneCountInString(got[0].ImagePrompt); n > maxImagePromptRune {
		t.Fatalf("prompt runes: want<=%d got=%d", maxImagePromptRune, n)
	}
}

func TestGenerateCaptionsFallsBackOnLLMError(t *testing.T) {
	article := howToArticle()
	ai := &stubAI{err: errors.New("upstream 500")}
	out := GenerateCaptions(context.Background(), CaptionGenerateDeps{AI: ai, Presets: DefaultPresets()}, CaptionGenerateInput{Article: article})
	if !out.UsedFallback || len(out.Captions) != 6 {
		t.Fatalf("want 6 fallback captions, got fallback=%v len=%d", out.UsedFallback, len(out.Captions))
	}
	if out.Captions[1].Headline != "Buy whole beans" {
		t.Fatalf("fallback headline: got=%q", out.Captions[1].Headline)
	}
	again := FallbackCaptions(article, AnalyzeFormat(article, DefaultPresets()), DefaultPresets())
	for i := range again {
		if again[i].ImagePrompt != out.Captions[i].ImagePrompt {
			t.Fatalf("fallback prompts must be deterministic per article")
		}
	}
}

func TestGenerateCaptionsUsesLLMOutput(t *testing.T) {
	ai := &stubAI{data: map[string]any{"slides": []any{
		map[string]any{"headline": "One"}, map[string]any{"headline": "Two"},
		map[string]any{"headline": "Three"}, map[string]any{"headline": "Four"},
		map[string]any{"headline": "Five"},
	}}}
	out := GenerateCaptions(context.Background(), CaptionGenerateDeps{AI: ai, Presets: DefaultPresets()}, CaptionGenerateInput{Article: &carousel.Article{Title: "T"}})
	if out.UsedFallback || out.Captions[4].Headline != "Five" || ai.Calls() != 1 {
		t.Fatalf("unexpected output: fallback=%v captions=%+v calls=%d", out.UsedFallback, out.Captions, ai.Calls())
	}
}
