package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/carousel-backend/internal/pkg/httpx"
)

type imagesGenerationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size,omitempty"`
	Quality        string `json:"quality,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type imagesGenerationResponse struct {
	Data []struct {
		B64JSON       string `json:"b64_json"`
		URL           string `json:"url"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
}

const maxImageDownloadBytes = 32 << 20

func (c *client) GenerateImage(ctx context.Context, in ImageRequest) (ImageGeneration, error) {
	var out ImageGeneration
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return out, errors.New("image prompt required")
	}
	model := strings.TrimSpace(in.Model)
	if model == "" {
		model = c.cfg.ImageModel
	}
	if model == "" {
		return out, errors.New("missing OPENAI_IMAGE_MODEL")
	}
	size := strings.TrimSpace(in.Size)
	if size == "" {
		size = c.cfg.ImageSize
	}

	// gpt-image-* always returns base64 and rejects response_format.
	gptImage := strings.HasPrefix(strings.ToLower(model), "gpt-image-")
	req := imagesGenerationRequest{Model: model, Prompt: prompt, N: 1, Size: size}
	if gptImage {
		req.Quality = strings.TrimSpace(in.Quality)
	} else {
		req.ResponseFormat = "b64_json"
		if strings.EqualFold(strings.TrimSpace(in.Quality), "high") {
			req.Quality = "hd"
		}
	}

	var resp imagesGenerationResponse
	if err := c.do(ctx, "POST", "/v1/images/generations", req, &resp); err != nil {
		return out, err
	}
	if len(resp.Data) == 0 {
		return out, errors.New("no image returned")
	}
	item := resp.Data[0]
	out.RevisedPrompt = strings.TrimSpace(item.RevisedPrompt)

	if b64 := strings.TrimSpace(item.B64JSON); b64 != "" {
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil || len(raw) == 0 {
			return out, fmt.Errorf("decode image base64: %w", err)
		}
		out.Bytes = raw
		out.MimeType = "image/png"
		return out, nil
	}
	u := strings.TrimSpace(item.URL)
	if u == "" {
		return out, errors.New("image response missing b64_json and url")
	}
	b, ct, err := httpx.Fetch(ctx, c.httpClient, u, maxImageDownloadBytes)
	if err != nil {
		return out, fmt.Errorf("download generated image: %w", err)
	}
	out.Bytes = b
	out.URL = u
	out.MimeType = strings.TrimSpace(strings.Split(ct, ";")[0])
	if out.MimeType == "" {
		out.MimeType = "image/png"
	}
	return out, nil
}
