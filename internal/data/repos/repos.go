package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/carousel-backend/internal/data/repos/carousel"
	"github.com/yungbote/carousel-backend/internal/platform/logger"
)

type ArticleRepo = carousel.ArticleRepo
type CarouselIntentRepo = carousel.CarouselIntentRepo
type CarouselSlideVersionRepo = carousel.CarouselSlideVersionRepo

func NewArticleRepo(db *gorm.DB, baseLog *logger.Logger) ArticleRepo {
	return carousel.NewArticleRepo(db, baseLog)
}

func NewCarouselIntentRepo(db *gorm.DB, baseLog *logger.Logger) CarouselIntentRepo {
	return carousel.NewCarouselIntentRepo(db, baseLog)
}

func NewCarouselSlideVersionRepo(db *gorm.DB, baseLog *logger.Logger) CarouselSlideVersionRepo {
	return carousel.NewCarouselSlideVersionRepo(db, baseLog)
}
