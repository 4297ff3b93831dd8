package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"funnel_backend/platform/apperr"
)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed contact repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const leadColumns = `id, owner_id, name, email, phone, attribution, stage_id,
	lifecycle_status, stage_entered_at, interaction_count, has_next_action,
	created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	var attribution []byte
	err := row.Scan(&l.ID, &l.OwnerID, &l.Name, &l.Email, &l.Phone, &attribution,
		&l.StageID, &l.Lifecycle, &l.StageEnteredAt, &l.InteractionCount,
		&l.HasNextAction, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return Lead{}, err
	}
	if len(attribution) > 0 {
		if err := json.Unmarshal(attribution, &l.Attribution); err != nil {
			return Lead{}, fmt.Errorf("decode attribution: %w", err)
		}
	}
	return l, nil
}

func (r *pgRepository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	attribution, err := json.Marshal(params.Attribution)
	if err != nil {
		return Lead{}, fmt.Errorf("encode attribution: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO leads (owner_id, name, email, phone, attribution)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s`, leadColumns)

	l, err := scanLead(r.pool.QueryRow(ctx, query,
		params.OwnerID, params.Name, params.Email, params.Phone, attribution))
	if err != nil {
		return Lead{}, fmt.Errorf("create lead: %w", err)
	}
	return l, nil
}

func (r *pgRepository) Get(ctx context.Context, ownerID, leadID uuid.UUID) (Lead, error) {
	query := fmt.Sprintf(`SELECT %s FROM leads WHERE id = $1 AND owner_id = $2`, leadColumns)

	l, err := scanLead(r.pool.QueryRow(ctx, query, leadID, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound("lead not found")
		}
		return Lead{}, fmt.Errorf("get lead: %w", err)
	}
	return l, nil
}

func (r *pgRepository) List(ctx context.Context, ownerID uuid.UUID, filter ListFilter) ([]Lead, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM leads l
		WHERE l.owner_id = $1
		  AND ($2::uuid IS NULL OR l.stage_id = $2)
		  AND ($3::uuid IS NULL OR l.stage_id IN (SELECT id FROM stages WHERE pipeline_id = $3))
		  AND ($4::text IS NULL OR l.lifecycle_status = $4)
		ORDER BY l.created_at DESC
		LIMIT $5`, leadColumns)

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}

	rows, err := r.pool.Query(ctx, query, ownerID, filter.StageID, filter.PipelineID, filter.Lifecycle, limit)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

func (r *pgRepository) RecordInteraction(ctx context.Context, ownerID, leadID uuid.UUID, hasNextAction bool) (Lead, error) {
	query := fmt.Sprintf(`
		UPDATE leads SET
			interaction_count = interaction_count + 1,
			has_next_action = $3,
			updated_at = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING %s`, leadColumns)

	l, err := scanLead(r.pool.QueryRow(ctx, query, leadID, ownerID, hasNextAction))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound("lead not found")
		}
		return Lead{}, fmt.Errorf("record interaction: %w", err)
	}
	return l, nil
}

func (r *pgRepository) FindRecentDuplicate(ctx context.Context, ownerID uuid.UUID, email, phone *string, since time.Time) (*Lead, error) {
	if email == nil && phone == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT %s FROM leads
		WHERE owner_id = $1
		  AND created_at >= $2
		  AND (($3::text IS NOT NULL AND email = $3) OR ($4::text IS NOT NULL AND phone = $4))
		ORDER BY created_at DESC
		LIMIT 1`, leadColumns)

	l, err := scanLead(r.pool.QueryRow(ctx, query, ownerID, since, email, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find duplicate lead: %w", err)
	}
	return &l, nil
}
