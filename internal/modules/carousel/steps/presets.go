package steps

import (
	"embed"
	"errors"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const presetsPathEnv = "CAROUSEL_PRESETS_PATH"

//go:embed presets.yaml
var presetsFS embed.FS

type StylePreset struct {
	Description  string `yaml:"description"`
	PromptSuffix string `yaml:"prompt_suffix"`
}

// Presets is the tunable copy and palette data of the pipeline.
type Presets struct {
	Version               int                    `yaml:"version"`
	DefaultPreset         string                 `yaml:"default_preset"`
	StylePresets          map[string]StylePreset `yaml:"style_presets"`
	NegativePrompt        string                 `yaml:"negative_prompt"`
	FallbackGradients     [][]string             `yaml:"fallback_gradients"`
	FallbackPrompts       []string               `yaml:"fallback_prompts"`
	CTAPhrases            []string               `yaml:"cta_phrases"`
	BannedHeadlineOpeners []string               `yaml:"banned_headline_openers"`

	gradients [][2]color.NRGBA
}

// LoadPresets reads path, or the embedded defaults when path is empty.
func LoadPresets(path string) (*Presets, error) {
	var (
		data []byte
		err  error
	)
	if p := strings.TrimSpace(path); p != "" {
		data, err = os.ReadFile(p)
	} else {
		data, err = presetsFS.ReadFile("presets.yaml")
	}
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	var p Presets
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("invalid presets: %w", err)
	}
	return &p, nil
}

// LoadPresetsFromEnv honours CAROUSEL_PRESETS_PATH.
func LoadPresetsFromEnv() (*Presets, error) {
	return LoadPresets(os.Getenv(presetsPathEnv))
}

// DefaultPresets returns the embedded presets and panics if they are invalid.
func DefaultPresets() *Presets {
	p, err := LoadPresets("")
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Presets) validate() error {
	if len(p.StylePresets) == 0 {
		return errors.New("no style presets")
	}
	normalized := make(map[string]StylePreset, len(p.StylePresets))
	for name, sp := range p.StylePresets {
		normalized[strings.ToLower(strings.TrimSpace(name))] = sp
	}
	p.StylePresets = normalized
	p.DefaultPreset = strings.ToLower(strings.TrimSpace(p.DefaultPreset))
	if _, ok := p.StylePresets[p.DefaultPreset]; !ok {
		return fmt.Errorf("default preset %q not defined", p.DefaultPreset)
	}
	if len(p.FallbackPrompts) == 0 {
		return errors.New("fallback_prompts is empty")
	}
	if len(p.CTAPhrases) == 0 {
		return errors.New("cta_phrases is empty")
	}
	if len(p.FallbackGradients) == 0 {
		return errors.New("fallback_gradients is empty")
	}
	p.gradients = make([][2]color.NRGBA, 0, len(p.FallbackGradients))
	for i, pair := range p.FallbackGradients {
		if len(pair) != 2 {
			return fmt.Errorf("fallback_gradients[%d]: want 2 colors, got %d", i, len(pair))
		}
		from, err := parseHexColor(pair[0])
		if err != nil {
			return fmt.Errorf("fallback_gradients[%d]: %w", i, err)
		}
		to, err := parseHexColor(pair[1])
		if err != nil {
			return fmt.Errorf("fallback_gradients[%d]: %w", i, err)
		}
		p.gradients = append(p.gradients, [2]color.NRGBA{from, to})
	}
	return nil
}

// ResolveStyle maps a requested preset to a known one; unknown or empty names
// use the default.
func (p *Presets) ResolveStyle(name string) (string, StylePreset) {
	key := strings.ToLower(strings.TrimSpace(name))
	if sp, ok := p.StylePresets[key]; ok {
		return key, sp
	}
	return p.DefaultPreset, p.StylePresets[p.DefaultPreset]
}

func (p *Presets) Gradients() [][2]color.NRGBA { return p.gradients }

func (p *Presets) ClosingPhrase() string { return p.CTAPhrases[0] }

func parseHexColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return color.NRGBA{}, fmt.Errorf("bad color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("bad color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
