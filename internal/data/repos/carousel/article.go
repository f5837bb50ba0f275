package carousel

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/carousel-backend/internal/domain/carousel"
	"github.com/yungbote/carousel-backend/internal/pkg/dbctx"
	"github.com/yungbote/carousel-backend/internal/platform/logger"
)

type ArticleRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Article, error)
	Upsert(dbc dbctx.Context, article *types.Article) error
}

type articleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArticleRepo(db *gorm.DB, baseLog *logger.Logger) ArticleRepo {
	return &articleRepo{
		db:  db,
		log: baseLog.With("repo", "ArticleRepo"),
	}
}

func (r *articleRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Article, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.Article
	err := dbc.DB(r.db).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *articleRepo) Upsert(dbc dbctx.Context, article *types.Article) error {
	if article == nil {
		return nil
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "subtitle", "introduction", "sections", "conclusion", "article_type", "updated_at",
			}),
		}).
		Create(article).Error
}
