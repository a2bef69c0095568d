package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Valerijkk/defect-tracker-lite/internal/cache"
	"github.com/Valerijkk/defect-tracker-lite/internal/config"
	"github.com/Valerijkk/defect-tracker-lite/internal/domain/defect"
	"github.com/Valerijkk/defect-tracker-lite/internal/domain/project"
	"github.com/Valerijkk/defect-tracker-lite/internal/reports"
	"github.com/gin-gonic/gin"
)

type DefectsStore interface {
	Create(ctx context.Context, req defect.CreateDefectRequest) (defect.Defect, error)
	List(ctx context.Context, filter defect.Filter) ([]defect.Defect, error)
	Update(ctx context.Context, id int64, patch defect.Patch) (defect.Defect, error)
}

type ProjectsReader interface {
	GetByID(ctx context.Context, id int64) (project.Project, error)
}

type DefectsHandler struct {
	repo     DefectsStore
	projects ProjectsReader
	summary  cache.SummaryCache
}

func NewDefectsHandler(repo DefectsStore, projects ProjectsReader, summary cache.SummaryCache) *DefectsHandler {
	return &DefectsHandler{repo: repo, projects: projects, summary: summary}
}

func (h *DefectsHandler) Create(ctx *gin.Context) {
	var req defect.CreateDefectRequest

	if !BindJSON(ctx, &req) {
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.AttachmentURL = strings.TrimSpace(req.AttachmentURL)

	// binding passes a whitespace-only title, trimming must not
	if req.Title == "" {
		RespondBadRequest(ctx, "Title must not be blank", gin.H{"param": "title"})
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	// resolve the project first so a dangling reference is a clean 404
	if _, err := h.projects.GetByID(cctx, req.ProjectID); err != nil {
		if errors.Is(err, project.ErrNotFound) {
			RespondNotFound(ctx, "Project not found")
			return
		}

		RespondInternal(ctx, "Could not create defect")
		return
	}

	d, err := h.repo.Create(cctx, req)

	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			RespondNotFound(ctx, "Project not found")
			return
		}

		RespondInternal(ctx, "Could not create defect")
		return
	}

	h.invalidateSummaries(cctx, d.ProjectID)

	ctx.JSON(http.StatusCreated, gin.H{"id": d.ID})
}

func (h *DefectsHandler) List(ctx *gin.Context) {
	filter, ok := parseDefectFilter(ctx)

	if !ok {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, err := h.repo.List(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list defects")
		return
	}

	ctx.JSON(http.StatusOK, items)
}

func (h *DefectsHandler) Update(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)

	if err != nil {
		RespondBadRequest(ctx, "Invalid defect id", gin.H{"param": "id"})
		return
	}

	var patch defect.Patch

	// a missing body is an empty patch, not a syntax error
	if ctx.Request.ContentLength != 0 {
		if !BindJSON(ctx, &patch) {
			return
		}
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	d, err := h.repo.Update(cctx, id, patch)

	if err != nil {
		if errors.Is(err, defect.ErrNotFound) {
			RespondNotFound(ctx, "Defect not found")
			return
		}

		RespondInternal(ctx, "Could not update defect")
		return
	}

	h.invalidateSummaries(cctx, d.ProjectID)

	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *DefectsHandler) invalidateSummaries(ctx context.Context, projectID int64) {
	if h.summary == nil {
		return
	}

	h.summary.Delete(ctx, reports.CacheKey(nil), reports.CacheKey(&projectID))
}

// parseDefectFilter maps query params onto the composable filter. A malformed
// value answers 400 naming the offending parameter and returns ok=false.
func parseDefectFilter(ctx *gin.Context) (defect.Filter, bool) {
	var filter defect.Filter

	if raw := ctx.Query("project_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)

		if err != nil {
			RespondBadRequest(ctx, "Invalid query parameter", gin.H{"param": "project_id"})
			return defect.Filter{}, false
		}

		filter.ProjectID = &id
	}

	// "all" is a sentinel meaning no status constraint
	if status := ctx.Query("status"); status != "" && status != defect.StatusAll {
		filter.Status = &status
	}

	if priority := ctx.Query("priority"); priority != "" {
		filter.Priority = &priority
	}

	if q := ctx.Query("q"); q != "" {
		filter.Query = &q
	}

	if raw := ctx.Query("date_from"); raw != "" {
		from, err := time.ParseInLocation("2006-01-02", raw, time.UTC)

		if err != nil {
			RespondBadRequest(ctx, "Invalid query parameter", gin.H{"param": "date_from"})
			return defect.Filter{}, false
		}

		filter.From = &from
	}

	if raw := ctx.Query("date_to"); raw != "" {
		to, err := time.ParseInLocation("2006-01-02", raw, time.UTC)

		if err != nil {
			RespondBadRequest(ctx, "Invalid query parameter", gin.H{"param": "date_to"})
			return defect.Filter{}, false
		}

		// inclusive through the end of that day: half-open upper bound at
		// the start of the next one
		next := to.AddDate(0, 0, 1)
		filter.To = &next
	}

	return filter, true
}
