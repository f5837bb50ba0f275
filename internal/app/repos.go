package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/carousel-backend/internal/data/aggregates"
	"github.com/yungbote/carousel-backend/internal/data/repos"
	domainagg "github.com/yungbote/carousel-backend/internal/domain/aggregates"
	"github.com/yungbote/carousel-backend/internal/observability"
	"github.com/yungbote/carousel-backend/internal/platform/logger"
)

type Repos struct {
	Article              repos.ArticleRepo
	CarouselIntent       repos.CarouselIntentRepo
	CarouselSlideVersion repos.CarouselSlideVersionRepo

	Carousels domainagg.CarouselAggregate
}

func wireRepos(db *gorm.DB, log *logger.Logger, metrics *observability.Metrics) Repos {
	log.Info("Wiring repos...")
	r := Repos{
		Article:              repos.NewArticleRepo(db, log),
		CarouselIntent:       repos.NewCarouselIntentRepo(db, log),
		CarouselSlideVersion: repos.NewCarouselSlideVersionRepo(db, log),
	}
	r.Carousels = aggregates.NewCarouselAggregate(aggregates.CarouselAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:    db,
			Log:   log,
			Hooks: aggregates.NewObservabilityHooks(metrics),
		},
		Intents:  r.CarouselIntent,
		Versions: r.CarouselSlideVersion,
	})
	return r
}
