package carousel

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/carousel-backend/internal/domain/carousel"
	"github.com/yungbote/carousel-backend/internal/pkg/dbctx"
	"github.com/yungbote/carousel-backend/internal/platform/logger"
)

type CarouselSlideVersionRepo interface {
	Create(dbc dbctx.Context, v *types.CarouselSlideVersion) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CarouselSlideVersion, error)
	// ListBySlide returns every version of a slide, newest first.
	ListBySlide(dbc dbctx.Context, intentID uuid.UUID, slideNumber int) ([]*types.CarouselSlideVersion, error)
	// ListActiveByIntent returns active versions ordered by slide number.
	ListActiveByIntent(dbc dbctx.Context, intentID uuid.UUID) ([]*types.CarouselSlideVersion, error)
	GetActive(dbc dbctx.Context, intentID uuid.UUID, slideNumber int) (*types.CarouselSlideVersion, error)
	LatestVersionNumber(dbc dbctx.Context, intentID uuid.UUID, slideNumber int) (int, error)
	CountBySlide(dbc dbctx.Context, intentID uuid.UUID, slideNumber int) (int, error)
	DeactivateSlide(dbc dbctx.Context, intentID uuid.UUID, slideNumber int) (int64, error)
	SetActive(dbc dbctx.Context, id uuid.UUID) error
	DeleteByIntentID(dbc dbctx.Context, intentID uuid.UUID) (int64, error)
}

type carouselSlideVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCarouselSlideVersionRepo(db *gorm.DB, baseLog *logger.Logger) CarouselSlideVersionRepo {
	return &carouselSlideVersionRepo{
		db:  db,
		log: baseLog.With("repo", "CarouselSlideVersionRepo"),
	}
}

func (r *carouselSlideVersionRepo) Create(dbc dbctx.Context, v *types.CarouselSlideVersion) error {
	if v == nil {
		return nil
	}
	return dbc.DB(r.db).Create(v).Error
}

func (r *carouselSlideVersionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CarouselSlideVersion, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.CarouselSlideVersion
	err := dbc.DB(r.db).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *carouselSlideVersionRepo) ListBySlide(dbc dbctx.Context, intentID uuid.UUID, slideNumber int) ([]*types.CarouselSlideVersion, error) {
	out := []*types.CarouselSlideVersion{}
	if intentID == uuid.Nil {
		return out, nil
	}
	err := dbc.DB(r.db).
		Where("carousel_intent_id = ? AND slide_number = ?", intentID, slideNumber).
		Order("version_number DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *carouselSlideVersionRepo) ListActiveByIntent(dbc dbctx.Context, intentID uuid.UUID) ([]*types.CarouselSlideVersion, error) {
	out := []*types.CarouselSlideVersion{}
	if intentID == uuid.Nil {
		return out, nil
	}
	err := dbc.DB(r.db).
		Where("carousel_intent_id = ? AND is_active = ?", intentID, true).
		Order("slide_number ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *carouselSlideVersionRepo) GetActive(dbc dbctx.Context, intentID uuid.UUID, slideNumber int) (*types.CarouselSlideVersion, error) {
	if intentID == uuid.Nil {
		return nil, nil
	}
	var out types.CarouselSlideVersion
	err := dbc.DB(r.db).
		Where("carousel_intent_id = ? AND slide_number = ? AND is_active = ?", intentID, slideNumber, true).
		Order("version_number DESC").
		Limit(1).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *carouselSlideVersionRepo) LatestVersionNumber(dbc dbctx.Context, intentID uuid.UUID, slideNumber int) (int, error) {
	var latest int
	err := dbc.DB(r.db).
		Model(&types.CarouselSlideVersion{}).
		Where("carousel_intent_id = ? AND slide_number = ?", intentID, slideNumber).
		Select("COALESCE(MAX(version_number), 0)").
		Scan(&latest).Error
	return latest, err
}

func (r *carouselSlideVersionRepo) CountBySlide(dbc dbctx.Context, intentID uuid.UUID, slideNumber int) (int, error) {
	var n int64
	err := dbc.DB(r.db).
		Model(&types.CarouselSlideVersion{}).
		Where("carousel_intent_id = ? AND slide_number = ?", intentID, slideNumber).
		Count(&n).Error
	return int(n), err
}

func (r *carouselSlideVersionRepo) DeactivateSlide(dbc dbctx.Context, intentID uuid.UUID, slideNumber int) (int64, error) {
	res := dbc.DB(r.db).
		Model(&types.CarouselSlideVersion{}).
		Where("carousel_intent_id = ? AND slide_number = ? AND is_active = ?", intentID, slideNumber, true).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

func (r *carouselSlideVersionRepo) SetActive(dbc dbctx.Context, id uuid.UUID) error {
	res := dbc.DB(r.db).
		Model(&types.CarouselSlideVersion{}).
		Where("id = ?", id).
		Update("is_active", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *carouselSlideVersionRepo) DeleteByIntentID(dbc dbctx.Context, intentID uuid.UUID) (int64, error) {
	if intentID == uuid.Nil {
		return 0, nil
	}
	res := dbc.DB(r.db).
		Where("carousel_intent_id = ?", intentID).
		Delete(&types.CarouselSlideVersion{})
	return res.RowsAffected, res.Error
}
