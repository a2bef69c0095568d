package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Valerijkk/defect-tracker-lite/internal/domain/project"
)

type ProjectsRepo struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]project.Project
}

func NewProjectsRepo() *ProjectsRepo {
	return &ProjectsRepo{items: make(map[int64]project.Project)}
}

func (r *ProjectsRepo) Create(_ context.Context, req project.CreateProjectRequest) (project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	p := project.Project{
		ID:          r.nextID,
		Name:        req.Name,
		Description: req.Description,
	}
	r.items[p.ID] = p

	return p, nil
}

func (r *ProjectsRepo) List(_ context.Context) ([]project.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]project.Project, 0, len(r.items))

	for _, p := range r.items {
		out = append(out, p)
	}

	// newest first, same contract as the postgres repo
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })

	return out, nil
}

func (r *ProjectsRepo) GetByID(_ context.Context, id int64) (project.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]

	if !ok {
		return project.Project{}, project.ErrNotFound
	}

	return p, nil
}
