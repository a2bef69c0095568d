package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/Valerijkk/defect-tracker-lite/internal/cache"
	"github.com/Valerijkk/defect-tracker-lite/internal/config"
	"github.com/Valerijkk/defect-tracker-lite/internal/reports"
	"github.com/gin-gonic/gin"
)

type SummaryRowsReader interface {
	StatusPriorityRows(ctx context.Context, projectID *int64) ([][2]string, error)
}

type ReportsHandler struct {
	rows    SummaryRowsReader
	summary cache.SummaryCache
}

func NewReportsHandler(rows SummaryRowsReader, summary cache.SummaryCache) *ReportsHandler {
	return &ReportsHandler{rows: rows, summary: summary}
}

func (h *ReportsHandler) Summary(ctx *gin.Context) {
	var projectID *int64

	if raw := ctx.Query("project_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)

		if err != nil {
			RespondBadRequest(ctx, "Invalid query parameter", gin.H{"param": "project_id"})
			return
		}

		projectID = &id
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	key := reports.CacheKey(projectID)

	if h.summary != nil {
		if body, ok := h.summary.Get(cctx, key); ok {
			ctx.Data(http.StatusOK, "application/json; charset=utf-8", body)
			return
		}
	}

	rows, err := h.rows.StatusPriorityRows(cctx, projectID)

	if err != nil {
		RespondInternal(ctx, "Could not build summary")
		return
	}

	summary := reports.Summarize(rows)

	if h.summary != nil {
		// summaries serialize identically for identical input, so the cached
		// bytes are safe to replay
		if body, err := json.Marshal(summary); err == nil {
			h.summary.Set(cctx, key, body)
		}
	}

	ctx.JSON(http.StatusOK, summary)
}
