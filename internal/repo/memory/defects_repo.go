package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Valerijkk/defect-tracker-lite/internal/domain/defect"
	"github.com/Valerijkk/defect-tracker-lite/internal/domain/project"
)

// DefectsRepo mirrors the postgres repo's semantics so that handlers behave
// the same against either implementation.
type DefectsRepo struct {
	mu       sync.RWMutex
	nextID   int64
	items    map[int64]defect.Defect
	projects *ProjectsRepo
}

func NewDefectsRepo(projects *ProjectsRepo) *DefectsRepo {
	return &DefectsRepo{
		items:    make(map[int64]defect.Defect),
		projects: projects,
	}
}

func (r *DefectsRepo) Create(ctx context.Context, req defect.CreateDefectRequest) (defect.Defect, error) {
	if r.projects != nil {
		if _, err := r.projects.GetByID(ctx, req.ProjectID); err != nil {
			return defect.Defect{}, project.ErrNotFound
		}
	}

	priority := req.Priority
	if priority == "" {
		priority = defect.PriorityMedium
	}

	status := req.Status
	if status == "" {
		status = defect.StatusNew
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	d := defect.Defect{
		ID:            r.nextID,
		ProjectID:     req.ProjectID,
		Title:         req.Title,
		Description:   req.Description,
		Priority:      priority,
		Status:        status,
		AssigneeID:    req.AssigneeID,
		AttachmentURL: req.AttachmentURL,
		CreatedAt:     time.Now().UTC(),
	}
	r.items[d.ID] = d

	return d, nil
}

func (r *DefectsRepo) List(ctx context.Context, filter defect.Filter) ([]defect.Defect, error) {
	r.mu.RLock()
	out := make([]defect.Defect, 0, len(r.items))

	for _, d := range r.items {
		if matches(d, filter) {
			out = append(out, d)
		}
	}
	r.mu.RUnlock()

	// recency descending, ties broken by id descending
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	if r.projects != nil {
		for i := range out {
			if p, err := r.projects.GetByID(ctx, out[i].ProjectID); err == nil {
				out[i].ProjectName = p.Name
			}
		}
	}

	return out, nil
}

func matches(d defect.Defect, f defect.Filter) bool {
	if f.ProjectID != nil && d.ProjectID != *f.ProjectID {
		return false
	}
	if f.Status != nil && d.Status != *f.Status {
		return false
	}
	if f.Priority != nil && d.Priority != *f.Priority {
		return false
	}
	if f.Query != nil {
		q := strings.ToLower(*f.Query)
		title := strings.ToLower(d.Title)
		desc := strings.ToLower(d.Description)
		if !strings.Contains(title, q) && !strings.Contains(desc, q) {
			return false
		}
	}
	if f.From != nil && d.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !d.CreatedAt.Before(*f.To) {
		return false
	}
	return true
}

func (r *DefectsRepo) Update(_ context.Context, id int64, patch defect.Patch) (defect.Defect, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.items[id]

	if !ok {
		return defect.Defect{}, defect.ErrNotFound
	}

	if patch.Title != nil {
		d.Title = *patch.Title
	}
	if patch.Description != nil {
		d.Description = *patch.Description
	}
	if patch.Priority != nil {
		d.Priority = *patch.Priority
	}
	if patch.Status != nil {
		d.Status = *patch.Status
	}
	if patch.AssigneeID != nil {
		d.AssigneeID = patch.AssigneeID
	}
	if patch.AttachmentURL != nil {
		d.AttachmentURL = *patch.AttachmentURL
	}

	r.items[id] = d

	return d, nil
}

func (r *DefectsRepo) StatusPriorityRows(_ context.Context, projectID *int64) ([][2]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([][2]string, 0, len(r.items))

	for _, d := range r.items {
		if projectID != nil && d.ProjectID != *projectID {
			continue
		}
		out = append(out, [2]string{d.Status, d.Priority})
	}

	return out, nil
}
