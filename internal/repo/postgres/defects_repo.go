package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Valerijkk/defect-tracker-lite/internal/domain/defect"
	"github.com/Valerijkk/defect-tracker-lite/internal/domain/project"
	"github.com/Valerijkk/defect-tracker-lite/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DefectsRepo struct {
	pool *pgxpool.Pool
	obs  *observability.Prom
}

func NewDefectsRepo(pool *pgxpool.Pool, obs *observability.Prom) *DefectsRepo {
	return &DefectsRepo{pool: pool, obs: obs}
}

func (r *DefectsRepo) Create(ctx context.Context, req defect.CreateDefectRequest) (defect.Defect, error) {
	// fill server-side defaults; created_at is assigned by the store
	priority := req.Priority
	if priority == "" {
		priority = defect.PriorityMedium
	}

	status := req.Status
	if status == "" {
		status = defect.StatusNew
	}

	var d defect.Defect

	err := r.obs.ObserveDB("defects.create", func() error {
		return r.pool.QueryRow(
			ctx,
			`INSERT INTO defects (project_id, title, description, priority, status, assignee_id, attachment_url)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id, project_id, title, description, priority, status, assignee_id, attachment_url, created_at`,
			req.ProjectID, req.Title, req.Description, priority, status, req.AssigneeID, req.AttachmentURL,
		).Scan(
			&d.ID, &d.ProjectID, &d.Title, &d.Description, &d.Priority,
			&d.Status, &d.AssigneeID, &d.AttachmentURL, &d.CreatedAt,
		)
	})

	if err != nil {
		var pgErr *pgconn.PgError

		// FK violation means the project does not resolve
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return defect.Defect{}, project.ErrNotFound
		}

		return defect.Defect{}, err
	}

	return d, nil
}

func (r *DefectsRepo) List(ctx context.Context, filter defect.Filter) ([]defect.Defect, error) {
	baseQuery := `SELECT d.id,
		d.project_id,
		COALESCE(p.name, ''),
		d.title,
		d.description,
		d.priority,
		d.status,
		d.assignee_id,
		d.attachment_url,
		d.created_at
	FROM defects d
	LEFT JOIN projects p ON p.id = d.project_id
	`

	var conds []string
	var args []interface{}

	argsPosition := 1

	if filter.ProjectID != nil {
		conds = append(conds, fmt.Sprintf("d.project_id = $%d", argsPosition))
		args = append(args, *filter.ProjectID)
		argsPosition++
	}

	if filter.Status != nil {
		conds = append(conds, fmt.Sprintf("d.status = $%d", argsPosition))
		args = append(args, *filter.Status)
		argsPosition++
	}

	if filter.Priority != nil {
		conds = append(conds, fmt.Sprintf("d.priority = $%d", argsPosition))
		args = append(args, *filter.Priority)
		argsPosition++
	}

	// substring clause is an OR across the two text fields
	if filter.Query != nil {
		conds = append(conds, fmt.Sprintf("(d.title ILIKE $%d OR d.description ILIKE $%d)", argsPosition, argsPosition))
		args = append(args, "%"+*filter.Query+"%")
		argsPosition++
	}

	if filter.From != nil {
		conds = append(conds, fmt.Sprintf("d.created_at >= $%d", argsPosition))
		args = append(args, *filter.From)
		argsPosition++
	}

	// half-open upper bound, see handler date parsing
	if filter.To != nil {
		conds = append(conds, fmt.Sprintf("d.created_at < $%d", argsPosition))
		args = append(args, *filter.To)
		argsPosition++
	}

	query := baseQuery

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	// deterministic ordering regardless of the storage engine's natural order
	query += " ORDER BY d.created_at DESC, d.id DESC"

	var output []defect.Defect

	err := r.obs.ObserveDB("defects.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		output = make([]defect.Defect, 0, 32)

		for rows.Next() {
			var d defect.Defect

			err = rows.Scan(
				&d.ID, &d.ProjectID, &d.ProjectName, &d.Title, &d.Description,
				&d.Priority, &d.Status, &d.AssigneeID, &d.AttachmentURL, &d.CreatedAt,
			)

			if err != nil {
				return err
			}

			output = append(output, d)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return output, nil
}

func (r *DefectsRepo) Update(ctx context.Context, id int64, patch defect.Patch) (defect.Defect, error) {
	var sets []string
	var args []interface{}

	args = append(args, id)
	argsPosition := 2

	set := func(column string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argsPosition))
		args = append(args, val)
		argsPosition++
	}

	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Priority != nil {
		set("priority", *patch.Priority)
	}
	if patch.Status != nil {
		set("status", *patch.Status)
	}
	if patch.AssigneeID != nil {
		set("assignee_id", *patch.AssigneeID)
	}
	if patch.AttachmentURL != nil {
		set("attachment_url", *patch.AttachmentURL)
	}

	var d defect.Defect

	if len(sets) == 0 {
		// nothing to change, still report NotFound for a bad id
		return r.getByID(ctx, id)
	}

	query := `UPDATE defects SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1
		RETURNING id, project_id, title, description, priority, status, assignee_id, attachment_url, created_at`

	err := r.obs.ObserveDB("defects.update", func() error {
		return r.pool.QueryRow(ctx, query, args...).Scan(
			&d.ID, &d.ProjectID, &d.Title, &d.Description, &d.Priority,
			&d.Status, &d.AssigneeID, &d.AttachmentURL, &d.CreatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return defect.Defect{}, defect.ErrNotFound
		}

		return defect.Defect{}, err
	}

	return d, nil
}

func (r *DefectsRepo) getByID(ctx context.Context, id int64) (defect.Defect, error) {
	var d defect.Defect

	err := r.obs.ObserveDB("defects.get_by_id", func() error {
		return r.pool.QueryRow(
			ctx,
			`SELECT id, project_id, title, description, priority, status, assignee_id, attachment_url, created_at
			 FROM defects WHERE id = $1`,
			id,
		).Scan(
			&d.ID, &d.ProjectID, &d.Title, &d.Description, &d.Priority,
			&d.Status, &d.AssigneeID, &d.AttachmentURL, &d.CreatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return defect.Defect{}, defect.ErrNotFound
		}

		return defect.Defect{}, err
	}

	return d, nil
}

// StatusPriorityRows feeds the report aggregator: one (status, priority) pair
// per defect, optionally restricted to a project.
func (r *DefectsRepo) StatusPriorityRows(ctx context.Context, projectID *int64) ([][2]string, error) {
	query := `SELECT status, priority FROM defects`
	var args []interface{}

	if projectID != nil {
		query += ` WHERE project_id = $1`
		args = append(args, *projectID)
	}

	var out [][2]string

	err := r.obs.ObserveDB("defects.status_priority_rows", func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([][2]string, 0, 64)

		for rows.Next() {
			var status, priority string

			if err := rows.Scan(&status, &priority); err != nil {
				return err
			}

			out = append(out, [2]string{status, priority})
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}
