package steps

import (
	"github.com/yungbote/carousel-backend/internal/domain/carousel"
)

type SlideType = carousel.SlideType

// CarouselFormat is the slide plan for an article. SuggestedHeadlines are
// advisory; generated captions take precedence.
type CarouselFormat struct {
	PageCount          int         `json:"page_count"`
	Structure          []SlideType `json:"structure"`
	SuggestedHeadlines []string    `json:"suggested_headlines"`
}

// SlideCaption is the normalized per-slide copy produced by the caption step.
type SlideCaption struct {
	SlideNumber int       `json:"slide_number"`
	SlideType   SlideType `json:"slide_type"`
	Headline    string    `json:"headline"`
	Caption     *string   `json:"caption,omitempty"`
	ImagePrompt string    `json:"image_prompt"`
}

const (
	maxHeadlineRunes   = 50
	maxCaptionRunes    = 80
	maxImagePromptRune = 400
	maxHeadingRunes    = 60

	slideSize = 1080
)

// isSplitLayout reports whether a slide shows its headline at the top and a
// caption at the bottom. Only interior slides 2 and 4 use it.
func isSplitLayout(slideNumber, pageCount int) bool {
	return (slideNumber == 2 || slideNumber == 4) && slideNumber < pageCount
}
