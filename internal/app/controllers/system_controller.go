package controllers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yigit/moim/internal/app/models/dto"
	"github.com/yigit/moim/internal/app/services"
	"github.com/yigit/moim/internal/middleware"
)

// CheckFunc checks one dependency
type CheckFunc func(ctx context.Context) error

// SystemController serves health and scheduler endpoints
type SystemController struct {
	lifecycleService services.LifecycleService
	checks           map[string]CheckFunc
}

// NewSystemController creates a new SystemController
func NewSystemController(lifecycleService services.LifecycleService, checks map[string]CheckFunc) *SystemController {
	return &SystemController{
		lifecycleService: lifecycleService,
		checks:           checks,
	}
}

// Health reports dependency status
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.HealthResponse} "All dependencies reachable"
// @Failure 503 {object} dto.APIResponse{data=dto.HealthResponse} "A dependency is unreachable"
// @Router /health [get]
func (c *SystemController) Health(ctx *gin.Context) {
	checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	response := dto.HealthResponse{Status: "ok", Checks: map[string]string{}}
	for _, name := range names {
		if err := c.checks[name](checkCtx); err != nil {
			response.Checks[name] = err.Error()
			response.Status = "degraded"
			continue
		}
		response.Checks[name] = "ok"
	}

	status := http.StatusOK
	if response.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	ctx.JSON(status, dto.APIResponse{
		Success:   status == http.StatusOK,
		Data:      response,
		Timestamp: time.Now(),
	})
}

// Sweep runs one lifecycle sweep
// @Summary Run lifecycle sweep
// @Description Aborts under-filled rooms, closes finished rooms, sends missing vote reminders and purges old rooms. Safe to call repeatedly.
// @Tags system
// @Produce json
// @Param X-Cron-Secret header string true "Scheduler secret"
// @Success 200 {object} dto.APIResponse{data=dto.SweepReport} "Sweep finished"
// @Failure 401 {object} dto.ErrorResponse "Invalid scheduler secret"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /cron/sweep [post]
func (c *SystemController) Sweep(ctx *gin.Context) {
	report, err := c.lifecycleService.Sweep(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(report))
}
