package steps

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/carousel-backend/internal/domain/carousel"
	"github.com/yungbote/carousel-backend/internal/observability"
	"github.com/yungbote/carousel-backend/internal/platform/logger"
	"github.com/yungbote/carousel-backend/internal/platform/openai"
	"github.com/yungbote/carousel-backend/internal/platform/promptstyle"
)

type CaptionGenerateDeps struct {
	Log     *logger.Logger
	AI      openai.Client
	Presets *Presets
	Metrics *observability.Metrics
}

type CaptionGenerateInput struct {
	Article *carousel.Article
	Format  CarouselFormat
	Model   string
}

type CaptionGenerateOutput struct {
	Captions []SlideCaption `json:"captions"`
	// UsedFallback is set when the LLM path failed and captions were built
	// deterministically.
	UsedFallback bool   `json:"used_fallback"`
	Error        string `json:"error,omitempty"`
}

const captionTemperature = 0.7

// GenerateCaptions asks the LLM for per-slide copy. It never fails: any LLM or
// parse error degrades to FallbackCaptions. The result always has one entry
// per slide in format order.
func GenerateCaptions(ctx context.Context, deps CaptionGenerateDeps, in CaptionGenerateInput) CaptionGenerateOutput {
	start := time.Now()
	defer func() { deps.Metrics.ObserveStage("captions", time.Since(start)) }()

	if in.Format.PageCount == 0 {
		in.Format = AnalyzeFormat(in.Article, deps.Presets)
	}
	if deps.AI == nil {
		return CaptionGenerateOutput{Captions: FallbackCaptions(in.Article, in.Format, deps.Presets), UsedFallback: true, Error: "llm client not configured"}
	}

	temp := captionTemperature
	data, err := deps.AI.GenerateJSON(ctx, openai.JSONRequest{
		System:      promptstyle.ApplySystem(captionSystemPrompt(in.Format, deps.Presets), "json"),
		User:        captionUserPrompt(in.Article, in.Format),
		SchemaName:  "carousel_slides",
		Schema:      captionSchema(),
		Temperature: &temp,
		Model:       in.Model,
	})
	if err == nil {
		var captions []SlideCaption
		captions, err = NormalizeCaptions(data, in.Format, in.Article, deps.Presets)
		if err == nil {
			return CaptionGenerateOutput{Captions: captions}
		}
	}
	if deps.Log != nil {
		deps.Log.Warn("Caption generation failed; using deterministic captions", "error", err)
	}
	return CaptionGenerateOutput{
		Captions:     FallbackCaptions(in.Article, in.Format, deps.Presets),
		UsedFallback: true,
		Error:        err.Error(),
	}
}

// NormalizeCaptions maps every accepted response shape to one SlideCaption per
// slide. Accepted containers are a "slides" array or object and top-level
// "slide1", "slide_2"... keys; per-slide keys may be camelCase or snake_case.
// Slide numbers are always assigned by position.
func NormalizeCaptions(data map[string]any, format CarouselFormat, article *carousel.Article, presets *Presets) ([]SlideCaption, error) {
	items := slideItems(data)
	if len(items) == 0 {
		return nil, errors.New("response contains no slides")
	}

	fallback := FallbackCaptions(article, format, presets)
	out := make([]SlideCaption, format.PageCount)
	for i := range out {
		n := i + 1
		c := fallback[i]
		if i < len(items) {
			raw := items[i]
			if h := firstString(raw, "headline", "headline_text", "headlineText", "title"); h != "" {
				c.Headline = h
			}
			if p := firstString(raw, "image_prompt", "imagePrompt", "prompt", "imagePromptText"); p != "" {
				c.ImagePrompt = p
			}
			c.Caption = nonEmptyPtr(firstString(raw, "caption", "subtext", "supporting_text"))
		}
		c.SlideNumber = n
		c.SlideType = format.Structure[i]
		out[i] = finalizeCaption(c, format.PageCount)
	}
	return out, nil
}

func finalizeCaption(c SlideCaption, pageCount int) SlideCaption {
	c.Headline = truncateRunes(c.Headline, maxHeadlineRunes)
	c.ImagePrompt = truncateRunes(c.ImagePrompt, maxImagePromptRune)
	if c.Caption != nil && isSplitLayout(c.SlideNumber, pageCount) {
		c.Caption = nonEmptyPtr(truncateRunes(*c.Caption, maxCaptionRunes))
	} else {
		c.Caption = nil
	}
	return c
}

var slideKeyPattern = regexp.MustCompile(`^slide[_\s-]?(\d+)$`)

func slideItems(data map[string]any) []map[string]any {
	if data == nil {
		return nil
	}
	switch v := data["slides"].(type) {
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, it := range v {
			if m, ok := it.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	case map[string]any:
		return keyedSlides(v)
	}
	return keyedSlides(data)
}

func keyedSlides(m map[string]any) []map[string]any {
	type keyed struct {
		n    int
		item map[string]any
	}
	var found []keyed
	for k, v := range m {
		match := slideKeyPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(k)))
		if match == nil {
			continue
		}
		item, ok := v.(map[string]any)
		if !ok {
			continue
		}
		n, _ := strconv.Atoi(match[1])
		found = append(found, keyed{n: n, item: item})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })
	out := make([]map[string]any, len(found))
	for i, f := range found {
		out[i] = f.item
	}
	return out
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s := stringFromAny(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// FallbackCaptions builds captions without the LLM: analyzer headlines and a
// prompt pool entry chosen deterministically from the article id.
func FallbackCaptions(article *carousel.Article, format CarouselFormat, presets *Presets) []SlideCaption {
	if presets == nil {
		presets = DefaultPresets()
	}
	if format.PageCount == 0 {
		format = AnalyzeFormat(article, presets)
	}
	seed := 0
	if article != nil {
		h := fnv.New32a()
		_, _ = h.Write(article.ID[:])
		seed = int(h.Sum32() % uint32(len(presets.FallbackPrompts)))
	}
	out := make([]SlideCaption, format.PageCount)
	for i := range out {
		headline := ""
		if i < len(format.SuggestedHeadlines) {
			headline = format.SuggestedHeadlines[i]
		}
		out[i] = finalizeCaption(SlideCaption{
			SlideNumber: i + 1,
			SlideType:   format.Structure[i],
			Headline:    headline,
			ImagePrompt: presets.FallbackPrompts[(seed+i)%len(presets.FallbackPrompts)],
		}, format.PageCount)
	}
	return out
}

func captionSchema() map[string]any {
	slide := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"slide_number": map[string]any{"type": "integer"},
			"headline":     map[string]any{"type": "string"},
			"caption":      map[string]any{"type": []string{"string", "null"}},
			"image_prompt": map[string]any{"type": "string"},
		},
		"required":             []string{"slide_number", "headline", "caption", "image_prompt"},
		"additionalProperties": false,
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"slides": map[string]any{"type": "array", "items": slide},
		},
		"required":             []string{"slides"},
		"additionalProperties": false,
	}
}

func captionSystemPrompt(format CarouselFormat, presets *Presets) string {
	var banned []string
	if presets != nil {
		banned = presets.BannedHeadlineOpeners
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Write copy for a %d-slide carousel that retells the article as one narrative arc.\n", format.PageCount)
	b.WriteString("Slide kinds in order: ")
	for i, s := range format.Structure {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d=%s", i+1, s)
	}
	b.WriteString(".\n")
	fmt.Fprintf(&b, "Headlines: at most %d characters, declarative or imperative, no questions, no hashtags or emoji.\n", maxHeadlineRunes)
	if len(banned) > 0 {
		fmt.Fprintf(&b, "Never start a headline with: %s.\n", strings.Join(banned, ", "))
	}
	fmt.Fprintf(&b, "Captions: only slides 2 and 4 may carry a supporting caption of at most %d characters; use null everywhere else.\n", maxCaptionRunes)
	b.WriteString("Image prompts: 30 to 80 words describing a purely abstract background. ")
	b.WriteString("State colors, lighting, texture and mood explicitly. ")
	b.WriteString("Never ask for text, letters, numbers, logos, people, faces or hands.\n")
	b.WriteString("The final slide is a call to action.")
	return b.String()
}

func captionUserPrompt(article *carousel.Article, format CarouselFormat) string {
	var b strings.Builder
	b.WriteString(articleSummary(article))
	b.WriteString("\n\nSuggested headlines (advisory):\n")
	for i, h := range format.SuggestedHeadlines {
		fmt.Fprintf(&b, "%d. %s\n", i+1, h)
	}
	fmt.Fprintf(&b, "\nReturn exactly %d slides.", format.PageCount)
	return b.String()
}

// articleSummary bounds the article to the parts the caption prompt needs.
func articleSummary(article *carousel.Article) string {
	if article == nil {
		return "Article: (missing)"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", strings.TrimSpace(article.Title))
	if s := strings.TrimSpace(article.Subtitle); s != "" {
		fmt.Fprintf(&b, "Subtitle: %s\n", s)
	}
	if s := truncateWords(article.Introduction, 600); s != "" {
		fmt.Fprintf(&b, "Introduction: %s\n", s)
	}
	for i, sec := range article.Sections {
		if i >= 3 {
			break
		}
		heading, body := splitSection(sec)
		fmt.Fprintf(&b, "Section %d: %s\n%s\n", i+1, heading, truncateWords(body, 400))
	}
	if s := truncateWords(article.Conclusion, 300); s != "" {
		fmt.Fprintf(&b, "Conclusion: %s\n", s)
	}
	return strings.TrimSpace(b.String())
}
