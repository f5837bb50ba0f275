package aggregates

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/carousel-backend/internal/data/repos"
	"github.com/yungbote/carousel-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/carousel-backend/internal/domain/aggregates"
	"github.com/yungbote/carousel-backend/internal/domain/carousel"
	"github.com/yungbote/carousel-backend/internal/pkg/dbctx"
)

type fixture struct {
	agg      domainagg.CarouselAggregate
	intents  repos.CarouselIntentRepo
	versions repos.CarouselSlideVersionRepo
	hooks    *spyHooks
	db       *gorm.DB
	dbc      dbctx.Context
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	f := fixture{
		intents:  repos.NewCarouselIntentRepo(db, log),
		versions: repos.NewCarouselSlideVersionRepo(db, log),
		hooks:    &spyHooks{},
		db:       db,
		dbc:      dbctx.Background(context.Background()),
	}
	f.agg = NewCarouselAggregate(CarouselAggregateDeps{
		Base:     BaseDeps{DB: db, Log: log, Hooks: f.hooks},
		Intents:  f.intents,
		Versions: f.versions,
	})
	return f
}

func (f fixture) seedIntent(t *testing.T, pageCount int) *carousel.CarouselIntent {
	t.Helper()
	return testutil.SeedIntent(t, f.dbc.Ctx, f.db, uuid.New(), pageCount)
}

func imagePages(n int, failed ...int) []carousel.CarouselPage {
	skip := map[int]bool{}
	for _, f := range failed {
		skip[f] = true
	}
	out := make([]carousel.CarouselPage, n)
	for i := range out {
		p := carousel.CarouselPage{PageNumber: i + 1, SlideType: carousel.SlideTypeContent, HeadlineText: "headline", Prompt: "prompt"}
		if skip[i+1] {
			msg := "t2i failed"
			p.GenerationError = &msg
		} else {
			url := "https://cdn.example/" + uuid.NewString() + ".png"
			p.ImageURL = &url
		}
		out[i] = p
	}
	return out
}

func TestCommitGenerationCreatesVersionOnePerImagedSlide(t *testing.T) {
	f := newFixture(t)
	intent := f.seedIntent(t, 4)
	pdf := "data:application/pdf;base64,AA=="
	summary := "1 images failed"

	res, err := f.agg.CommitGeneration(context.Background(), domainagg.CommitGenerationInput{
		IntentID:        intent.ID,
		Pages:           imagePages(4, 3),
		Provider:        "openai",
		PDFURL:          &pdf,
		GenerationError: &summary,
	})
	if err != nil {
		t.Fatalf("CommitGeneration: %v", err)
	}
	if len(res.Versions) != 3 {
		t.Fatalf("versions: want=3 got=%d", len(res.Versions))
	}
	stored, err := f.intents.GetByID(f.dbc, intent.ID)
	if err != nil || stored == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !stored.IsCached() || stored.GenerationProvider != "openai" || stored.PageCount != 4 {
		t.Fatalf("intent not finalized: %+v", stored)
	}
	for _, p := range stored.Pages {
		if p.PageNumber == 3 {
			if p.HasImage() || p.ActiveVersionID != nil || p.VersionCount != 0 {
				t.Fatalf("failed page should have no version: %+v", p)
			}
			continue
		}
		if p.ActiveVersionID == nil || p.VersionCount != 1 {
			t.Fatalf("page %d: want active v1 got=%+v", p.PageNumber, p)
		}
	}
	if n, _ := f.versions.LatestVersionNumber(f.dbc, intent.ID, 1); n != 1 {
		t.Fatalf("latest version slide 1: want=1 got=%d", n)
	}
}

func TestCommitGenerationAgainAppendsWithoutDeleting(t *testing.T) {
	f := newFixture(t)
	intent := f.seedIntent(t, 3)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := f.agg.CommitGeneration(ctx, domainagg.CommitGenerationInput{IntentID: intent.ID, Pages: imagePages(3)}); err != nil {
			t.Fatalf("CommitGeneration #%d: %v", i, err)
		}
	}
	for slide := 1; slide <= 3; slide++ {
		list, err := f.versions.ListBySlide(f.dbc, intent.ID, slide)
		if err != nil || len(list) != 2 {
			t.Fatalf("slide %d versions: want=2 got=%d err=%v", slide, len(list), err)
		}
		if !list[0].IsActive || list[1].IsActive || list[0].VersionNumber != 2 {
			t.Fatalf("slide %d: want only v2 active, got v%d=%v v%d=%v", slide, list[0].VersionNumber, list[0].IsActive, list[1].VersionNumber, list[1].IsActive)
		}
	}
}

func TestCommitGenerationKeepsPriorVersionForImagelessSlide(t *testing.T) {
	f := newFixture(t)
	intent := f.seedIntent(t, 4)
	ctx := context.Background()
	first, err := f.agg.CommitGeneration(ctx, domainagg.CommitGenerationInput{IntentID: intent.ID, Pages: imagePages(4)})
	if err != nil {
		t.Fatalf("CommitGeneration #1: %v", err)
	}
	v1 := first.Intent.Page(3)

	pages := imagePages(4, 3)
	pages[2].Prompt = "new run prompt"
	second, err := f.agg.CommitGeneration(ctx, domainagg.CommitGenerationInput{IntentID: intent.ID, Pages: pages})
	if err != nil {
		t.Fatalf("CommitGeneration #2: %v", err)
	}
	if len(second.Versions) != 3 {
		t.Fatalf("versions appended: want=3 got=%d", len(second.Versions))
	}

	stored, _ := f.intents.GetByID(f.dbc, intent.ID)
	got := stored.Page(3)
	if !got.HasImage() || *got.ImageURL != *v1.ImageURL {
		t.Fatalf("page 3 image: want=%s got=%v", *v1.ImageURL, got.ImageURL)
	}
	if got.ActiveVersionID == nil || *got.ActiveVersionID != *v1.ActiveVersionID || got.VersionCount != 1 {
		t.Fatalf("page 3 must mirror its active v1: %+v", got)
	}
	if got.Prompt != v1.Prompt {
		t.Fatalf("page 3 prompt: want=%q got=%q", v1.Prompt, got.Prompt)
	}
	if got.GenerationError == nil || *got.GenerationError != "t2i failed" {
		t.Fatalf("page 3 error: got=%v", got.GenerationError)
	}
}

func TestCommitGenerationRejectsMisnumberedPages(t *testing.T) {
	f := newFixture(t)
	intent := f.seedIntent(t, 3)
	pages := imagePages(3)
	pages[1].PageNumber = 5
	_, err := f.agg.CommitGeneration(context.Background(), domainagg.CommitGenerationInput{IntentID: intent.ID, Pages: pages})
	if !domainagg.IsCode(err, domainagg.CodeInvariantViolation) {
		t.Fatalf("want invariant violation got=%v", err)
	}
	if n, _ := f.versions.CountBySlide(f.dbc, intent.ID, 1); n != 0 {
		t.Fatalf("rolled back tx must leave no versions, got=%d", n)
	}
}

func TestAppendAndActivateSlideVersion(t *testing.T) {
	f := newFixture(t)
	intent := f.seedIntent(t, 5)
	ctx := context.Background()
	if _, err := f.agg.CommitGeneration(ctx, domainagg.CommitGenerationInput{IntentID: intent.ID, Pages: imagePages(5)}); err != nil {
		t.Fatalf("CommitGeneration: %v", err)
	}
	before, _ := f.intents.GetByID(f.dbc, intent.ID)
	v1 := *before.Page(2).ActiveVersionID

	url := "https://cdn.example/regen.png"
	caption := "fresh caption"
	appended, err := f.agg.AppendSlideVersion(ctx, domainagg.AppendSlideVersionInput{
		IntentID: intent.ID,
		Version: &carousel.CarouselSlideVersion{
			SlideNumber:  2,
			Prompt:       "violet dusk",
			HeadlineText: "Start small",
			Caption:      &caption,
			ImageURL:     &url,
			GeneratedAt:  time.Now().UTC(),
		},
	})
	if err != nil {
		t.Fatalf("AppendSlideVersion: %v", err)
	}
	if appended.Version.VersionNumber != 2 || appended.Version.SlideType != carousel.SlideTypeContent {
		t.Fatalf("appended version: %+v", appended.Version)
	}
	page := appended.Intent.Page(2)
	if *page.ImageURL != url || *page.ActiveVersionID != appended.Version.ID || page.VersionCount != 2 {
		t.Fatalf("page 2 not rebuilt from new version: %+v", page)
	}
	if other := appended.Intent.Page(3); *other.ImageURL != *before.Page(3).ImageURL || other.VersionCount != 1 {
		t.Fatalf("page 3 must be untouched: %+v", other)
	}

	activated, err := f.agg.ActivateSlideVersion(ctx, domainagg.ActivateSlideVersionInput{IntentID: intent.ID, SlideNumber: 2, VersionID: v1})
	if err != nil {
		t.Fatalf("ActivateSlideVersion: %v", err)
	}
	stored, _ := f.intents.GetByID(f.dbc, intent.ID)
	p := stored.Page(2)
	if *p.ActiveVersionID != v1 || *p.ImageURL != *before.Page(2).ImageURL || p.HeadlineText != activated.Version.HeadlineText || p.VersionCount != 2 {
		t.Fatalf("page 2 should mirror v1: %+v", p)
	}
	active := 0
	list, _ := f.versions.ListBySlide(f.dbc, intent.ID, 2)
	for _, v := range list {
		if v.IsActive {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("active versions: want=1 got=%d", active)
	}
}

func TestActivateSlideVersionRejectsForeignVersion(t *testing.T) {
	f := newFixture(t)
	intent := f.seedIntent(t, 3)
	ctx := context.Background()
	res, err := f.agg.CommitGeneration(ctx, domainagg.CommitGenerationInput{IntentID: intent.ID, Pages: imagePages(3)})
	if err != nil {
		t.Fatalf("CommitGeneration: %v", err)
	}
	slide1 := res.Versions[0].ID

	for _, in := range []domainagg.ActivateSlideVersionInput{
		{IntentID: intent.ID, SlideNumber: 2, VersionID: slide1},
		{IntentID: intent.ID, SlideNumber: 1, VersionID: uuid.New()},
	} {
		if _, err := f.agg.ActivateSlideVersion(ctx, in); !domainagg.IsCode(err, domainagg.CodeNotFound) {
			t.Fatalf("activate %+v: want not_found got=%v", in, err)
		}
	}
}

func TestDeleteCarouselCascades(t *testing.T) {
	f := newFixture(t)
	intent := f.seedIntent(t, 3)
	ctx := context.Background()
	if _, err := f.agg.CommitGeneration(ctx, domainagg.CommitGenerationInput{IntentID: intent.ID, Pages: imagePages(3)}); err != nil {
		t.Fatalf("CommitGeneration: %v", err)
	}
	res, err := f.agg.DeleteCarousel(ctx, intent.ID)
	if err != nil || res.DeletedVersions != 3 {
		t.Fatalf("DeleteCarousel: res=%+v err=%v", res, err)
	}
	if got, _ := f.intents.GetByID(f.dbc, intent.ID); got != nil {
		t.Fatalf("intent still present")
	}
	if list, _ := f.versions.ListBySlide(f.dbc, intent.ID, 1); len(list) != 0 {
		t.Fatalf("versions still present: %d", len(list))
	}
	if _, err := f.agg.DeleteCarousel(ctx, intent.ID); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("second delete: want not_found got=%v", err)
	}
	if last := f.hooks.Operations[len(f.hooks.Operations)-1]; last.Status != string(domainagg.CodeNotFound) {
		t.Fatalf("hook status: want=not_found got=%s", last.Status)
	}
}
