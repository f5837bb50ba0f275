package imagegen

import (
	"context"
	"strings"

	"github.com/yungbote/carousel-backend/internal/platform/openai"
)

// OpenAIProvider adapts the OpenAI Images API. The API has no negative-prompt
// field, so exclusions are appended to the prompt as constraints.
type OpenAIProvider struct {
	client openai.Client
}

func NewOpenAIProvider(client openai.Client) *OpenAIProvider {
	return &OpenAIProvider{client: client}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Generate(ctx context.Context, req Request, model string) (Image, error) {
	quality := "medium"
	if req.HighQuality {
		quality = "high"
	}
	gen, err := p.client.GenerateImage(ctx, openai.ImageRequest{
		Prompt:  composePrompt(req),
		Model:   model,
		Size:    sizeForAspect(req.AspectRatio),
		Quality: quality,
	})
	if err != nil {
		return Image{}, err
	}
	return Image{Bytes: gen.Bytes, MimeType: gen.MimeType, URL: gen.URL}, nil
}

func composePrompt(req Request) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(req.Prompt))
	if neg := strings.TrimSpace(req.NegativePrompt); neg != "" {
		b.WriteString("\n\nStrictly avoid: ")
		b.WriteString(neg)
		b.WriteString(".")
	}
	return b.String()
}

func sizeForAspect(aspect string) string {
	switch strings.TrimSpace(aspect) {
	case AspectPortrait:
		return "1024x1536"
	case AspectLandscape:
		return "1536x1024"
	default:
		return "1024x1024"
	}
}
