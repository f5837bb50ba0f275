package carousel

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/carousel-backend/internal/domain/carousel"
	"github.com/yungbote/carousel-backend/internal/pkg/dbctx"
	"github.com/yungbote/carousel-backend/internal/platform/logger"
)

type CarouselIntentRepo interface {
	GetByArticleID(dbc dbctx.Context, articleID uuid.UUID) (*types.CarouselIntent, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CarouselIntent, error)
	// GetByIDForUpdate row-locks the intent for the rest of dbc.Tx. The
	// sqlite dialect drops the locking clause; its single writer serializes.
	GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.CarouselIntent, error)
	// CreateIfAbsent inserts intent unless the article already has one, and
	// returns the stored row either way.
	CreateIfAbsent(dbc dbctx.Context, intent *types.CarouselIntent) (*types.CarouselIntent, bool, error)
	Update(dbc dbctx.Context, intent *types.CarouselIntent) error
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	DeleteByID(dbc dbctx.Context, id uuid.UUID) (int64, error)
}

type carouselIntentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCarouselIntentRepo(db *gorm.DB, baseLog *logger.Logger) CarouselIntentRepo {
	return &carouselIntentRepo{
		db:  db,
		log: baseLog.With("repo", "CarouselIntentRepo"),
	}
}

func (r *carouselIntentRepo) GetByArticleID(dbc dbctx.Context, articleID uuid.UUID) (*types.CarouselIntent, error) {
	if articleID == uuid.Nil {
		return nil, nil
	}
	return r.first(dbc, "article_id = ?", articleID)
}

func (r *carouselIntentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CarouselIntent, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return r.first(dbc, "id = ?", id)
}

func (r *carouselIntentRepo) GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.CarouselIntent, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.CarouselIntent
	err := dbc.DB(r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *carouselIntentRepo) first(dbc dbctx.Context, query string, arg interface{}) (*types.CarouselIntent, error) {
	var out types.CarouselIntent
	err := dbc.DB(r.db).Where(query, arg).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *carouselIntentRepo) CreateIfAbsent(dbc dbctx.Context, intent *types.CarouselIntent) (*types.CarouselIntent, bool, error) {
	if intent == nil || intent.ArticleID == uuid.Nil {
		return nil, false, errors.New("carousel intent requires article_id")
	}
	res := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "article_id"}},
			DoNothing: true,
		}).
		Create(intent)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return intent, true, nil
	}
	existing, err := r.GetByArticleID(dbc, intent.ArticleID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, errors.New("carousel intent vanished after conflict")
	}
	return existing, false, nil
}

func (r *carouselIntentRepo) Update(dbc dbctx.Context, intent *types.CarouselIntent) error {
	if intent == nil || intent.ID == uuid.Nil {
		return errors.New("carousel intent requires id")
	}
	intent.UpdatedAt = time.Now().UTC()
	return dbc.DB(r.db).Save(intent).Error
}

func (r *carouselIntentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.DB(r.db).
		Model(&types.CarouselIntent{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *carouselIntentRepo) DeleteByID(dbc dbctx.Context, id uuid.UUID) (int64, error) {
	if id == uuid.Nil {
		return 0, nil
	}
	res := dbc.DB(r.db).Where("id = ?", id).Delete(&types.CarouselIntent{})
	return res.RowsAffected, res.Error
}
