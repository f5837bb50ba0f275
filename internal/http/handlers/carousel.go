package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/carousel-backend/internal/http/response"
	"github.com/yungbote/carousel-backend/internal/modules/carousel"
	"github.com/yungbote/carousel-backend/internal/platform/apierr"
	"github.com/yungbote/carousel-backend/internal/platform/logger"
)

// CarouselService is the subset of carousel.Usecases the handlers call.
type CarouselService interface {
	Generate(ctx context.Context, in carousel.GenerateInput) (carousel.GenerateOutput, error)
	Status(ctx context.Context, in carousel.StatusInput) (carousel.StatusOutput, error)
	Delete(ctx context.Context, in carousel.DeleteInput) (carousel.DeleteOutput, error)
	RegenerateSlide(ctx context.Context, in carousel.RegenerateSlideInput) (carousel.SlideVersionOutput, error)
	SlideVersions(ctx context.Context, in carousel.SlideVersionsInput) (carousel.SlideVersionsOutput, error)
	ActivateVersion(ctx context.Context, in carousel.ActivateVersionInput) (carousel.SlideVersionOutput, error)
}

type CarouselHandler struct {
	log       *logger.Logger
	carousels CarouselService
}

func NewCarouselHandler(log *logger.Logger, carousels CarouselService) *CarouselHandler {
	return &CarouselHandler{log: log.With("handler", "CarouselHandler"), carousels: carousels}
}

type generateRequest struct {
	Provider        string `json:"provider"`
	Model           string `json:"model"`
	StylePreset     string `json:"style_preset"`
	SkipPDF         bool   `json:"skip_pdf"`
	ForceRegenerate bool   `json:"force_regenerate"`
}

type regenerateRequest struct {
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	CustomPrompt     string `json:"custom_prompt"`
	RegeneratePrompt bool   `json:"regenerate_prompt"`
}

// POST /api/articles/:articleId/carousel
func (h *CarouselHandler) Generate(c *gin.Context) {
	articleID, err := uuid.Parse(c.Param("articleId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_article_id", err)
		return
	}
	var req generateRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	out, err := h.carousels.Generate(c.Request.Context(), carousel.GenerateInput{
		ArticleID:       articleID,
		Provider:        strings.TrimSpace(req.Provider),
		Model:           strings.TrimSpace(req.Model),
		StylePreset:     strings.TrimSpace(req.StylePreset),
		SkipPDF:         req.SkipPDF,
		ForceRegenerate: req.ForceRegenerate,
	})
	if errors.Is(err, carousel.ErrAllSlidesFailed) {
		response.RespondErrorWithResult(c, http.StatusBadGateway, "all_slides_failed", err, out)
		return
	}
	if err != nil {
		h.fail(c, "generate", err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/articles/:articleId/carousel
func (h *CarouselHandler) Status(c *gin.Context) {
	articleID, err := uuid.Parse(c.Param("articleId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_article_id", err)
		return
	}
	out, err := h.carousels.Status(c.Request.Context(), carousel.StatusInput{ArticleID: articleID})
	if err != nil {
		h.fail(c, "status", err)
		return
	}
	response.RespondOK(c, out)
}

// DELETE /api/articles/:articleId/carousel
func (h *CarouselHandler) Delete(c *gin.Context) {
	articleID, err := uuid.Parse(c.Param("articleId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_article_id", err)
		return
	}
	out, err := h.carousels.Delete(c.Request.Context(), carousel.DeleteInput{ArticleID: articleID})
	if err != nil {
		h.fail(c, "delete", err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true, "carousel_id": out.CarouselID, "deleted_versions": out.DeletedVersions})
}

// POST /api/articles/:articleId/carousel/slides/:slide/regenerate
func (h *CarouselHandler) RegenerateSlide(c *gin.Context) {
	articleID, err := uuid.Parse(c.Param("articleId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_article_id", err)
		return
	}
	slide, ok := slideParam(c)
	if !ok {
		return
	}
	var req regenerateRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	out, err := h.carousels.RegenerateSlide(c.Request.Context(), carousel.RegenerateSlideInput{
		ArticleID:        articleID,
		SlideNumber:      slide,
		Provider:         strings.TrimSpace(req.Provider),
		Model:            strings.TrimSpace(req.Model),
		CustomPrompt:     req.CustomPrompt,
		RegeneratePrompt: req.RegeneratePrompt,
	})
	if err != nil {
		h.fail(c, "regenerate_slide", err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/carousels/:carouselId/slides/:slide/versions
func (h *CarouselHandler) SlideVersions(c *gin.Context) {
	carouselID, err := uuid.Parse(c.Param("carouselId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_carousel_id", err)
		return
	}
	slide, ok := slideParam(c)
	if !ok {
		return
	}
	out, err := h.carousels.SlideVersions(c.Request.Context(), carousel.SlideVersionsInput{CarouselID: carouselID, SlideNumber: slide})
	if err != nil {
		h.fail(c, "slide_versions", err)
		return
	}
	response.RespondOK(c, out)
}

// POST /api/carousels/:carouselId/slides/:slide/versions/:versionId/activate
func (h *CarouselHandler) ActivateVersion(c *gin.Context) {
	carouselID, err := uuid.Parse(c.Param("carouselId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_carousel_id", err)
		return
	}
	slide, ok := slideParam(c)
	if !ok {
		return
	}
	versionID, err := uuid.Parse(c.Param("versionId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_version_id", err)
		return
	}
	out, err := h.carousels.ActivateVersion(c.Request.Context(), carousel.ActivateVersionInput{
		CarouselID:  carouselID,
		SlideNumber: slide,
		VersionID:   versionID,
	})
	if err != nil {
		h.fail(c, "activate_version", err)
		return
	}
	response.RespondOK(c, out)
}

func (h *CarouselHandler) fail(c *gin.Context, op string, err error) {
	ae := MapCarouselError(err)
	if ae.Status >= http.StatusInternalServerError {
		h.log.Error("Carousel request failed", "op", op, "error", err)
	}
	response.RespondAPIError(c, ae)
}

// MapCarouselError assigns the HTTP status and code for a carousel error.
func MapCarouselError(err error) *apierr.Error {
	switch {
	case errors.Is(err, carousel.ErrNotFound):
		return apierr.NotFound("not_found", err)
	case errors.Is(err, carousel.ErrVersionNotFound):
		return apierr.NotFound("version_not_found", err)
	case errors.Is(err, carousel.ErrInvalidSlideNumber):
		return apierr.BadRequest("invalid_slide_number", err)
	case errors.Is(err, carousel.ErrGenerationInProgress):
		return apierr.Conflict("generation_in_progress", err)
	case errors.Is(err, carousel.ErrAllSlidesFailed):
		return apierr.New(http.StatusBadGateway, "all_slides_failed", err)
	default:
		return apierr.Internal("internal", err)
	}
}

func slideParam(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("slide"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_slide_number", fmt.Errorf("slide must be an integer: %w", err))
		return 0, false
	}
	return n, true
}

// bindOptionalJSON accepts an empty body as zero options.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return false
	}
	return true
}
