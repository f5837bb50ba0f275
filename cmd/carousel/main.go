package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/yungbote/carousel-backend/internal/app"
	types "github.com/yungbote/carousel-backend/internal/domain/carousel"
	"github.com/yungbote/carousel-backend/internal/modules/carousel"
	"github.com/yungbote/carousel-backend/internal/pkg/dbctx"
)

func main() {
	var (
		articleArg  string
		articleJSON string
		force       bool
		skipPDF     bool
		provider    string
		model       string
		style       string
	)
	flag.StringVar(&articleArg, "article", "", "article id to generate a carousel for")
	flag.StringVar(&articleJSON, "article-json", "", "JSON file with an article to upsert before generating")
	flag.BoolVar(&force, "force", false, "regenerate even when a carousel exists")
	flag.BoolVar(&skipPDF, "skip-pdf", false, "skip document assembly")
	flag.StringVar(&provider, "provider", "", "image provider (default from CAROUSEL_IMAGE_PROVIDER)")
	flag.StringVar(&model, "model", "", "image model")
	flag.StringVar(&style, "style", "", "style preset")
	flag.Parse()

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	articleID, err := resolveArticle(ctx, application, articleArg, articleJSON)
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(2)
	}

	out, err := application.Services.Carousels.Generate(ctx, carousel.GenerateInput{
		ArticleID:       articleID,
		Provider:        provider,
		Model:           model,
		StylePreset:     style,
		SkipPDF:         skipPDF,
		ForceRegenerate: force,
	})
	if err != nil && !errors.Is(err, carousel.ErrAllSlidesFailed) {
		fmt.Printf("generate: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(out); encErr != nil {
		fmt.Printf("encode result: %v\n", encErr)
		os.Exit(1)
	}
	if err != nil {
		os.Exit(1)
	}
}

// resolveArticle returns the id to generate for, upserting the article from
// path first when one is given.
func resolveArticle(ctx context.Context, a *app.App, raw, path string) (uuid.UUID, error) {
	var id uuid.UUID
	if raw = strings.TrimSpace(raw); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid -article %q: %w", raw, err)
		}
		id = parsed
	}
	if path == "" {
		if id == uuid.Nil {
			return uuid.Nil, fmt.Errorf("-article or -article-json is required")
		}
		return id, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return uuid.Nil, fmt.Errorf("read article: %w", err)
	}
	var article types.Article
	if err := json.Unmarshal(b, &article); err != nil {
		return uuid.Nil, fmt.Errorf("decode article: %w", err)
	}
	if id != uuid.Nil {
		article.ID = id
	}
	if article.ID == uuid.Nil {
		article.ID = uuid.New()
	}
	if err := a.Repos.Article.Upsert(dbctx.Context{Ctx: ctx}, &article); err != nil {
		return uuid.Nil, fmt.Errorf("upsert article: %w", err)
	}
	return article.ID, nil
}
