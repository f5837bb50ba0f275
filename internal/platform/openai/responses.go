package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/carousel-backend/internal/platform/promptstyle"
)

type responsesInput struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesRequest struct {
	Model       string           `json:"model"`
	Input       []responsesInput `json:"input"`
	Text        responsesText    `json:"text"`
	Temperature *float64         `json:"temperature,omitempty"`
}

type responsesText struct {
	Format map[string]any `json:"format,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type    string `json:"type"`
			Text    string `json:"text,omitempty"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
}

func (r responsesResponse) outputText() (text string, refusal string) {
	var out strings.Builder
	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			switch part.Type {
			case "output_text":
				out.WriteString(part.Text)
			case "refusal":
				refusal = part.Refusal
			}
		}
	}
	return out.String(), refusal
}

func (c *client) GenerateJSON(ctx context.Context, in JSONRequest) (map[string]any, error) {
	if strings.TrimSpace(in.SchemaName) == "" {
		return nil, errors.New("schemaName required")
	}
	if in.Schema == nil {
		return nil, errors.New("schema required")
	}
	model := strings.TrimSpace(in.Model)
	if model == "" {
		model = c.cfg.Model
	}

	req := responsesRequest{
		Model: model,
		Input: []responsesInput{
			{Role: "system", Content: promptstyle.ApplySystem(in.System, "json")},
			{Role: "user", Content: in.User},
		},
		Text: responsesText{Format: map[string]any{
			"type":   "json_schema",
			"name":   in.SchemaName,
			"schema": in.Schema,
			"strict": in.Strict,
		}},
	}
	if !c.modelRejectsTemperature(model) {
		temp := c.cfg.Temperature
		if in.Temperature != nil {
			temp = *in.Temperature
		}
		req.Temperature = &temp
	}

	var resp responsesResponse
	err := c.do(ctx, "POST", "/v1/responses", &req, &resp)
	if err != nil && req.Temperature != nil && isUnsupportedTemperatureParam(err) {
		c.noteNoTempModel(model)
		req.Temperature = nil
		err = c.do(ctx, "POST", "/v1/responses", &req, &resp)
	}
	if err != nil {
		return nil, err
	}

	text, refusal := resp.outputText()
	if refusal != "" {
		return nil, fmt.Errorf("model refused: %s", refusal)
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("no output_text found in response")
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, fmt.Errorf("failed to parse model JSON: %w", err)
	}
	return obj, nil
}
