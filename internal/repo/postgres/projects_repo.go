package postgres

import (
	"context"
	"errors"

	"github.com/Valerijkk/defect-tracker-lite/internal/domain/project"
	"github.com/Valerijkk/defect-tracker-lite/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProjectsRepo struct {
	pool *pgxpool.Pool
	obs  *observability.Prom
}

func NewProjectsRepo(pool *pgxpool.Pool, obs *observability.Prom) *ProjectsRepo {
	return &ProjectsRepo{pool: pool, obs: obs}
}

func (r *ProjectsRepo) Create(ctx context.Context, req project.CreateProjectRequest) (project.Project, error) {
	var p project.Project

	err := r.obs.ObserveDB("projects.create", func() error {
		return r.pool.QueryRow(
			ctx,
			`INSERT INTO projects (name, description)
			 VALUES ($1, $2)
			 RETURNING id, name, description`,
			req.Name, req.Description,
		).Scan(&p.ID, &p.Name, &p.Description)
	})

	if err != nil {
		return project.Project{}, err
	}

	return p, nil
}

// List returns newest first, matching defect ordering.
func (r *ProjectsRepo) List(ctx context.Context) ([]project.Project, error) {
	var out []project.Project

	err := r.obs.ObserveDB("projects.list", func() error {
		rows, err := r.pool.Query(ctx, `SELECT id, name, description FROM projects ORDER BY id DESC`)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([]project.Project, 0, 16)

		for rows.Next() {
			var p project.Project

			if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
				return err
			}

			out = append(out, p)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *ProjectsRepo) GetByID(ctx context.Context, id int64) (project.Project, error) {
	var p project.Project

	err := r.obs.ObserveDB("projects.get_by_id", func() error {
		return r.pool.QueryRow(
			ctx,
			`SELECT id, name, description FROM projects WHERE id = $1`,
			id,
		).Scan(&p.ID, &p.Name, &p.Description)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return project.Project{}, project.ErrNotFound
		}

		return project.Project{}, err
	}

	return p, nil
}
