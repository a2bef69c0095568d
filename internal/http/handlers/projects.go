package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Valerijkk/defect-tracker-lite/internal/config"
	"github.com/Valerijkk/defect-tracker-lite/internal/domain/project"
	"github.com/gin-gonic/gin"
)

type ProjectsStore interface {
	Create(ctx context.Context, req project.CreateProjectRequest) (project.Project, error)
	List(ctx context.Context) ([]project.Project, error)
}

type ProjectsHandler struct {
	repo ProjectsStore
}

func NewProjectsHandler(repo ProjectsStore) *ProjectsHandler {
	return &ProjectsHandler{repo: repo}
}

func (h *ProjectsHandler) List(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	items, err := h.repo.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list projects")
		return
	}

	ctx.JSON(http.StatusOK, items)
}

// Create is manager-gated by the router; the handler itself only validates.
func (h *ProjectsHandler) Create(ctx *gin.Context) {
	var req project.CreateProjectRequest

	if !BindJSON(ctx, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)

	if req.Name == "" {
		RespondBadRequest(ctx, "Name must not be blank", gin.H{"param": "name"})
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	p, err := h.repo.Create(cctx, req)

	if err != nil {
		RespondInternal(ctx, "Could not create project")
		return
	}

	ctx.JSON(http.StatusCreated, p)
}
