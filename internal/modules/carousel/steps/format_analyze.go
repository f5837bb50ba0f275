package steps

import (
	"fmt"
	"strings"

	"github.com/yungbote/carousel-backend/internal/domain/carousel"
)

const defaultPageCount = 5

var pageCountByArticleType = map[string]int{
	carousel.ArticleTypeDeepDive: 7,
	carousel.ArticleTypeHowTo:    6,
}

// AnalyzeFormat decides slide count and slide kinds for an article. It never
// fails; unknown article types get the five-slide default.
func AnalyzeFormat(article *carousel.Article, presets *Presets) CarouselFormat {
	pageCount := defaultPageCount
	if article != nil {
		if n, ok := pageCountByArticleType[strings.ToLower(strings.TrimSpace(article.ArticleType))]; ok {
			pageCount = n
		}
	}

	structure := make([]SlideType, pageCount)
	for i := range structure {
		structure[i] = carousel.SlideTypeContent
	}
	structure[0] = carousel.SlideTypeTitle
	structure[pageCount-1] = carousel.SlideTypeCTA

	return CarouselFormat{
		PageCount:          pageCount,
		Structure:          structure,
		SuggestedHeadlines: suggestHeadlines(article, pageCount, presets),
	}
}

func suggestHeadlines(article *carousel.Article, pageCount int, presets *Presets) []string {
	out := make([]string, pageCount)
	title := ""
	var sections []string
	if article != nil {
		title = strings.TrimSpace(article.Title)
		sections = article.Sections
	}
	if title == "" {
		title = "Key Takeaways"
	}
	out[0] = truncateRunes(title, maxHeadlineRunes)
	for i := 1; i < pageCount-1; i++ {
		heading := ""
		if i-1 < len(sections) {
			heading = extractHeading(sections[i-1])
		}
		if heading == "" {
			heading = fmt.Sprintf("Key Insight %d", i)
		}
		out[i] = heading
	}
	closing := "Save this for later"
	if presets != nil {
		closing = presets.ClosingPhrase()
	}
	out[pageCount-1] = closing
	return out
}

// extractHeading returns a section's markdown heading, or else its first
// clause, cut to 60 characters on a word boundary.
func extractHeading(section string) string {
	section = strings.TrimSpace(section)
	if section == "" {
		return ""
	}
	first := section
	if i := strings.IndexByte(section, '\n'); i >= 0 {
		first = section[:i]
	}
	first = strings.TrimSpace(first)
	if strings.HasPrefix(first, "#") {
		first = strings.TrimSpace(strings.TrimLeft(first, "#"))
	} else if i := strings.IndexAny(first, ".!?:;"); i > 0 {
		first = first[:i]
	} else if i := strings.Index(first, " - "); i > 0 {
		first = first[:i]
	}
	first = strings.Trim(first, " *_`\"")
	return truncateWords(first, maxHeadingRunes)
}

// splitSection separates a leading markdown heading from the body.
func splitSection(section string) (heading, body string) {
	section = strings.TrimSpace(section)
	if strings.HasPrefix(section, "#") {
		line, rest, _ := strings.Cut(section, "\n")
		return strings.TrimSpace(strings.TrimLeft(line, "#")), strings.TrimSpace(rest)
	}
	return extractHeading(section), section
}
