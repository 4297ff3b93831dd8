package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"funnel_backend/platform/apperr"
)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed pipeline repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const pipelineColumns = `id, owner_id, name, slug, description, created_at, updated_at`

func scanPipeline(row pgx.Row) (Pipeline, error) {
	var p Pipeline
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Slug, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *pgRepository) ListPipelines(ctx context.Context, ownerID uuid.UUID) ([]Pipeline, error) {
	query := fmt.Sprintf(`SELECT %s FROM pipelines WHERE owner_id = $1 ORDER BY created_at`, pipelineColumns)

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list pipelines: %w", err)
	}
	defer rows.Close()

	pipelines := make([]Pipeline, 0)
	for rows.Next() {
		p, err := scanPipeline(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pipeline: %w", err)
		}
		pipelines = append(pipelines, p)
	}
	return pipelines, rows.Err()
}

func (r *pgRepository) GetPipeline(ctx context.Context, ownerID, id uuid.UUID) (Pipeline, error) {
	query := fmt.Sprintf(`SELECT %s FROM pipelines WHERE id = $1 AND owner_id = $2`, pipelineColumns)

	p, err := scanPipeline(r.pool.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Pipeline{}, apperr.NotFound("pipeline not found")
		}
		return Pipeline{}, fmt.Errorf("get pipeline: %w", err)
	}
	return p, nil
}

func (r *pgRepository) CreatePipeline(ctx context.Context, params CreatePipelineParams) (Pipeline, error) {
	query := fmt.Sprintf(`
		INSERT INTO pipelines (owner_id, name, slug, description)
		VALUES ($1, $2, $3, $4)
		RETURNING %s`, pipelineColumns)

	p, err := scanPipeline(r.pool.QueryRow(ctx, query, params.OwnerID, params.Name, params.Slug, params.Description))
	if err != nil {
		return Pipeline{}, fmt.Errorf("create pipeline: %w", err)
	}
	return p, nil
}

func (r *pgRepository) UpdatePipeline(ctx context.Context, params UpdatePipelineParams) (Pipeline, error) {
	query := fmt.Sprintf(`
		UPDATE pipelines SET
			name = COALESCE($3, name),
			slug = COALESCE($4, slug),
			description = COALESCE($5, description),
			updated_at = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING %s`, pipelineColumns)

	p, err := scanPipeline(r.pool.QueryRow(ctx, query,
		params.ID, params.OwnerID, params.Name, params.Slug, params.Description))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Pipeline{}, apperr.NotFound("pipeline not found")
		}
		return Pipeline{}, fmt.Errorf("update pipeline: %w", err)
	}
	return p, nil
}

func (r *pgRepository) DeletePipeline(ctx context.Context, ownerID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM pipelines WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete pipeline: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("pipeline not found")
	}
	return nil
}

const stageColumns = `s.id, s.pipeline_id, s.name, s.slug, s.kind, s.color, s.position, s.created_at, s.updated_at`

func scanStage(row pgx.Row) (Stage, error) {
	var s Stage
	err := row.Scan(&s.ID, &s.PipelineID, &s.Name, &s.Slug, &s.Kind, &s.Color, &s.Position, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *pgRepository) ListStages(ctx context.Context, ownerID, pipelineID uuid.UUID) ([]Stage, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM stages s
		JOIN pipelines p ON p.id = s.pipeline_id
		WHERE s.pipeline_id = $1 AND p.owner_id = $2
		ORDER BY s.position`, stageColumns)

	rows, err := r.pool.Query(ctx, query, pipelineID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	stages := make([]Stage, 0)
	for rows.Next() {
		s, err := scanStage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		stages = append(stages, s)
	}
	return stages, rows.Err()
}

func (r *pgRepository) GetStage(ctx context.Context, ownerID, stageID uuid.UUID) (Stage, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM stages s
		JOIN pipelines p ON p.id = s.pipeline_id
		WHERE s.id = $1 AND p.owner_id = $2`, stageColumns)

	s, err := scanStage(r.pool.QueryRow(ctx, query, stageID, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Stage{}, apperr.NotFound("stage not found")
		}
		return Stage{}, fmt.Errorf("get stage: %w", err)
	}
	return s, nil
}

func (r *pgRepository) CreateStage(ctx context.Context, params CreateStageParams) (Stage, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Stage{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the parent row so concurrent appends serialize on the position
	// counter.
	var pipelineID uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT id FROM pipelines WHERE id = $1 AND owner_id = $2 FOR UPDATE`,
		params.PipelineID, params.OwnerID).Scan(&pipelineID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Stage{}, apperr.NotFound("pipeline not found")
		}
		return Stage{}, fmt.Errorf("lock pipeline: %w", err)
	}

	query := `
		INSERT INTO stages (pipeline_id, name, slug, kind, color, position)
		VALUES ($1, $2, $3, $4, $5, (SELECT count(*) FROM stages WHERE pipeline_id = $1))
		RETURNING id, pipeline_id, name, slug, kind, color, position, created_at, updated_at`

	s, err := scanStage(tx.QueryRow(ctx, query,
		params.PipelineID, params.Name, params.Slug, params.Kind, params.Color))
	if err != nil {
		return Stage{}, fmt.Errorf("create stage: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Stage{}, fmt.Errorf("commit stage creation: %w", err)
	}
	return s, nil
}

func (r *pgRepository) UpdateStage(ctx context.Context, params UpdateStageParams) (Stage, error) {
	query := `
		UPDATE stages s SET
			name = COALESCE($3, s.name),
			slug = COALESCE($4, s.slug),
			kind = COALESCE($5, s.kind),
			color = COALESCE($6, s.color),
			updated_at = now()
		FROM pipelines p
		WHERE s.id = $1 AND s.pipeline_id = p.id AND p.owner_id = $2
		RETURNING s.id, s.pipeline_id, s.name, s.slug, s.kind, s.color, s.position, s.created_at, s.updated_at`

	s, err := scanStage(r.pool.QueryRow(ctx, query,
		params.ID, params.OwnerID, params.Name, params.Slug, params.Kind, params.Color))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Stage{}, apperr.NotFound("stage not found")
		}
		return Stage{}, fmt.Errorf("update stage: %w", err)
	}
	return s, nil
}

func (r *pgRepository) DeleteStage(ctx context.Context, ownerID, stageID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var pipelineID uuid.UUID
	var position int
	err = tx.QueryRow(ctx, `
		DELETE FROM stages s
		USING pipelines p
		WHERE s.id = $1 AND s.pipeline_id = p.id AND p.owner_id = $2
		RETURNING s.pipeline_id, s.position`, stageID, ownerID).
		Scan(&pipelineID, &position)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("stage not found")
		}
		return fmt.Errorf("delete stage: %w", err)
	}

	// Close the gap. The two-step sign flip keeps every intermediate row
	// clear of the unique (pipeline_id, position) index.
	_, err = tx.Exec(ctx,
		`UPDATE stages SET position = -position WHERE pipeline_id = $1 AND position > $2`,
		pipelineID, position)
	if err != nil {
		return fmt.Errorf("renumber stages: %w", err)
	}
	_, err = tx.Exec(ctx,
		`UPDATE stages SET position = -position - 1 WHERE pipeline_id = $1 AND position < 0`,
		pipelineID)
	if err != nil {
		return fmt.Errorf("renumber stages: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit stage deletion: %w", err)
	}
	return nil
}

func (r *pgRepository) RenumberStages(ctx context.Context, ownerID, pipelineID uuid.UUID, orderedIDs []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT id FROM pipelines WHERE id = $1 AND owner_id = $2 FOR UPDATE`,
		pipelineID, ownerID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("pipeline not found")
		}
		return fmt.Errorf("lock pipeline: %w", err)
	}

	// Phase one shifts every row out of the way of the unique index,
	// phase two writes the final ordering.
	_, err = tx.Exec(ctx,
		`UPDATE stages SET position = -position - 1 WHERE pipeline_id = $1`, pipelineID)
	if err != nil {
		return fmt.Errorf("renumber stages: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE stages s
		SET position = u.ord - 1, updated_at = now()
		FROM unnest($2::uuid[]) WITH ORDINALITY AS u(id, ord)
		WHERE s.id = u.id AND s.pipeline_id = $1`,
		pipelineID, orderedIDs)
	if err != nil {
		return fmt.Errorf("renumber stages: %w", err)
	}
	if int(tag.RowsAffected()) != len(orderedIDs) {
		return apperr.Conflict("stage ordering no longer matches the pipeline")
	}

	// Any row still carrying a phase-one position was missing from the
	// requested ordering.
	var stragglers int
	err = tx.QueryRow(ctx,
		`SELECT count(*) FROM stages WHERE pipeline_id = $1 AND position < 0`, pipelineID).
		Scan(&stragglers)
	if err != nil {
		return fmt.Errorf("verify stage ordering: %w", err)
	}
	if stragglers > 0 {
		return apperr.Conflict("stage ordering no longer matches the pipeline")
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit stage reorder: %w", err)
	}
	return nil
}

func (r *pgRepository) StageHasLeads(ctx context.Context, ownerID, stageID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM leads l
			JOIN stages s ON s.id = l.stage_id
			JOIN pipelines p ON p.id = s.pipeline_id
			WHERE l.stage_id = $1 AND p.owner_id = $2
		)`, stageID, ownerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check stage usage: %w", err)
	}
	return exists, nil
}

func (r *pgRepository) GetActivePipeline(ctx context.Context, operatorID uuid.UUID) (*uuid.UUID, error) {
	var pipelineID uuid.UUID
	err := r.pool.QueryRow(ctx,
		`SELECT pipeline_id FROM operator_pipeline_prefs WHERE operator_id = $1`,
		operatorID).Scan(&pipelineID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active pipeline: %w", err)
	}
	return &pipelineID, nil
}

func (r *pgRepository) SetActivePipeline(ctx context.Context, operatorID, pipelineID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO operator_pipeline_prefs (operator_id, pipeline_id)
		VALUES ($1, $2)
		ON CONFLICT (operator_id) DO UPDATE SET pipeline_id = $2, updated_at = now()`,
		operatorID, pipelineID)
	if err != nil {
		return fmt.Errorf("set active pipeline: %w", err)
	}
	return nil
}
