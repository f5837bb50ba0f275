package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RenderWarmer is satisfied by *render.Engine; Init loads the slide fonts once.
type RenderWarmer interface {
	Init(ctx context.Context) error
}

const readyTimeout = 3 * time.Second

type HealthHandler struct {
	db     Pinger
	render RenderWarmer
}

func NewHealthHandler(db Pinger, render RenderWarmer) *HealthHandler {
	return &HealthHandler{db: db, render: render}
}

// HealthCheck is liveness only.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Ready reports whether carousels can be generated: the database answers and
// the render engine has its fonts. Unconfigured checks are reported as skipped.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	out := readiness{Status: "ready", Checks: map[string]string{}}
	check := func(name string, run func(context.Context) error) {
		if run == nil {
			out.Checks[name] = "skipped"
			return
		}
		if err := run(ctx); err != nil {
			out.Status = "unavailable"
			out.Checks[name] = err.Error()
			return
		}
		out.Checks[name] = "ok"
	}
	var ping, warm func(context.Context) error
	if h.db != nil {
		ping = h.db.PingContext
	}
	if h.render != nil {
		warm = h.render.Init
	}
	check("database", ping)
	check("render", warm)

	status := http.StatusOK
	if out.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, out)
}
