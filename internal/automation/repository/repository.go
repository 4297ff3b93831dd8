package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"funnel_backend/internal/automation/domain"
	"funnel_backend/platform/apperr"
)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed automation rule repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const ruleColumns = `id, owner_id, trigger_type, pipeline_id, stage_id, is_active, created_at, updated_at`

func scanRule(row pgx.Row) (StoredRule, error) {
	var r StoredRule
	err := row.Scan(&r.ID, &r.OwnerID, &r.TriggerType, &r.PipelineID, &r.StageID,
		&r.IsActive, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (r *pgRepository) List(ctx context.Context, ownerID uuid.UUID) ([]StoredRule, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM automation_rules
		WHERE owner_id = $1
		ORDER BY created_at`, ruleColumns)

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list automation rules: %w", err)
	}
	defer rows.Close()

	rules := make([]StoredRule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan automation rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *pgRepository) ListActive(ctx context.Context, ownerID uuid.UUID) ([]domain.Rule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, trigger_type, pipeline_id, stage_id, is_active
		FROM automation_rules
		WHERE owner_id = $1 AND is_active`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list active automation rules: %w", err)
	}
	defer rows.Close()

	rules := make([]domain.Rule, 0)
	for rows.Next() {
		var rule domain.Rule
		err := rows.Scan(&rule.ID, &rule.OwnerID, &rule.TriggerType,
			&rule.PipelineID, &rule.StageID, &rule.IsActive)
		if err != nil {
			return nil, fmt.Errorf("scan automation rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *pgRepository) Upsert(ctx context.Context, params UpsertParams) (StoredRule, error) {
	var row pgx.Row
	if params.ID != nil {
		row = r.pool.QueryRow(ctx, fmt.Sprintf(`
			UPDATE automation_rules SET
				trigger_type = $3, pipeline_id = $4, stage_id = $5,
				is_active = $6, updated_at = now()
			WHERE id = $1 AND owner_id = $2
			RETURNING %s`, ruleColumns),
			*params.ID, params.OwnerID, params.TriggerType,
			params.PipelineID, params.StageID, params.IsActive)
	} else {
		row = r.pool.QueryRow(ctx, fmt.Sprintf(`
			INSERT INTO automation_rules (owner_id, trigger_type, pipeline_id, stage_id, is_active)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING %s`, ruleColumns),
			params.OwnerID, params.TriggerType,
			params.PipelineID, params.StageID, params.IsActive)
	}

	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StoredRule{}, apperr.NotFound("automation rule not found")
		}
		if isUniqueViolation(err) {
			return StoredRule{}, apperr.Conflict("an active rule for this trigger type already exists")
		}
		return StoredRule{}, fmt.Errorf("upsert automation rule: %w", err)
	}
	return rule, nil
}

func (r *pgRepository) SetActive(ctx context.Context, ownerID, ruleID uuid.UUID, active bool) (StoredRule, error) {
	query := fmt.Sprintf(`
		UPDATE automation_rules SET is_active = $3, updated_at = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING %s`, ruleColumns)

	rule, err := scanRule(r.pool.QueryRow(ctx, query, ruleID, ownerID, active))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StoredRule{}, apperr.NotFound("automation rule not found")
		}
		if isUniqueViolation(err) {
			return StoredRule{}, apperr.Conflict("an active rule for this trigger type already exists")
		}
		return StoredRule{}, fmt.Errorf("toggle automation rule: %w", err)
	}
	return rule, nil
}

func (r *pgRepository) Delete(ctx context.Context, ownerID, ruleID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM automation_rules WHERE id = $1 AND owner_id = $2`, ruleID, ownerID)
	if err != nil {
		return fmt.Errorf("delete automation rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("automation rule not found")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
