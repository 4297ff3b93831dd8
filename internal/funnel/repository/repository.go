package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"funnel_backend/internal/funnel/domain"
	"funnel_backend/platform/apperr"
)

const (
	leadNotFoundMessage  = "lead not found"
	stageNotFoundMessage = "stage not found"
)

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new funnel repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// GetLead retrieves the engine's slice of a lead. The pipeline of the
// current stage is joined in so callers never trust a client-supplied
// pipeline id.
func (r *Repo) GetLead(ctx context.Context, ownerID, leadID uuid.UUID) (Lead, error) {
	query := `
		SELECT l.id, l.owner_id, l.stage_id, s.pipeline_id, l.lifecycle_status,
		       l.stage_entered_at, l.interaction_count, l.has_next_action, l.updated_at
		FROM leads l
		LEFT JOIN stages s ON s.id = l.stage_id
		WHERE l.id = $1 AND l.owner_id = $2`

	var lead Lead
	var lifecycle string
	err := r.pool.QueryRow(ctx, query, leadID, ownerID).Scan(
		&lead.ID, &lead.OwnerID, &lead.StageID, &lead.PipelineID, &lifecycle,
		&lead.StageEnteredAt, &lead.InteractionCount, &lead.HasNextAction, &lead.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMessage)
		}
		return Lead{}, fmt.Errorf("get lead: %w", err)
	}

	lead.Lifecycle = domain.Lifecycle(lifecycle)
	return lead, nil
}

// GetStage retrieves a stage by id, scoped to its owner through the
// owning pipeline.
func (r *Repo) GetStage(ctx context.Context, ownerID, stageID uuid.UUID) (Stage, error) {
	query := `
		SELECT s.id, p.owner_id, s.pipeline_id, s.name, s.kind, s.position
		FROM stages s
		JOIN pipelines p ON p.id = s.pipeline_id
		WHERE s.id = $1 AND p.owner_id = $2`

	var st Stage
	var kind string
	err := r.pool.QueryRow(ctx, query, stageID, ownerID).Scan(
		&st.ID, &st.OwnerID, &st.PipelineID, &st.Name, &kind, &st.Position,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Stage{}, apperr.NotFound(stageNotFoundMessage)
		}
		return Stage{}, fmt.Errorf("get stage: %w", err)
	}

	st.Kind = domain.StageKind(kind)
	return st, nil
}

// ApplyMove commits an approved move: a conditional lead update and the
// audit append share one transaction, so a successful call always leaves
// exactly one new funnel event and the lead in the target stage.
func (r *Repo) ApplyMove(ctx context.Context, p MoveParams) (FunnelEvent, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return FunnelEvent{}, fmt.Errorf("begin move: %w", err)
	}
	defer tx.Rollback(ctx)

	update := `
		UPDATE leads
		SET stage_id = $1, lifecycle_status = $2, stage_entered_at = $3, updated_at = now()
		WHERE id = $4 AND owner_id = $5 AND stage_id = $6 AND updated_at = $7`

	tag, err := tx.Exec(ctx, update,
		p.TargetStageID, string(p.Lifecycle), p.EnteredAt,
		p.LeadID, p.OwnerID, p.ExpectedStageID, p.ExpectedUpdatedAt,
	)
	if err != nil {
		return FunnelEvent{}, fmt.Errorf("move lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Another operator moved the lead between our read and this write.
		return FunnelEvent{}, apperr.Conflict("lead was modified concurrently, re-read and retry").
			WithCode(string(domain.CodeStaleLeadState))
	}

	event, err := insertEvent(ctx, tx, p.LeadID, &p.PipelineID, &p.ExpectedStageID, p.TargetStageID, p.PerformedBy, p.EnteredAt, p.ReasonText)
	if err != nil {
		return FunnelEvent{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return FunnelEvent{}, fmt.Errorf("commit move: %w", err)
	}
	return event, nil
}

// ApplyPlacement commits a first placement. The stage_id IS NULL guard
// makes the operation idempotent under at-least-once trigger delivery:
// the second attempt matches zero rows and reports AlreadyPlaced.
func (r *Repo) ApplyPlacement(ctx context.Context, p PlacementParams) (FunnelEvent, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return FunnelEvent{}, fmt.Errorf("begin placement: %w", err)
	}
	defer tx.Rollback(ctx)

	update := `
		UPDATE leads
		SET stage_id = $1, lifecycle_status = $2, stage_entered_at = $3, updated_at = now()
		WHERE id = $4 AND owner_id = $5 AND stage_id IS NULL`

	tag, err := tx.Exec(ctx, update,
		p.TargetStageID, string(p.Lifecycle), p.EnteredAt, p.LeadID, p.OwnerID,
	)
	if err != nil {
		return FunnelEvent{}, fmt.Errorf("place lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return FunnelEvent{}, apperr.Conflict("lead already has a stage placement").
			WithCode(string(domain.CodeAlreadyPlaced))
	}

	event, err := insertEvent(ctx, tx, p.LeadID, &p.PipelineID, nil, p.TargetStageID, p.PerformedBy, p.EnteredAt, nil)
	if err != nil {
		return FunnelEvent{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return FunnelEvent{}, fmt.Errorf("commit placement: %w", err)
	}
	return event, nil
}

func insertEvent(ctx context.Context, tx pgx.Tx, leadID uuid.UUID, pipelineID, fromStageID *uuid.UUID, toStageID uuid.UUID, performedBy *uuid.UUID, performedAt time.Time, reasonText *string) (FunnelEvent, error) {
	insert := `
		INSERT INTO funnel_events (lead_id, pipeline_id, from_stage_id, to_stage_id, performed_by, performed_at, reason_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, lead_id, pipeline_id, from_stage_id, to_stage_id, performed_by, performed_at, reason_text`

	var ev FunnelEvent
	err := tx.QueryRow(ctx, insert,
		leadID, pipelineID, fromStageID, toStageID, performedBy, performedAt, reasonText,
	).Scan(&ev.ID, &ev.LeadID, &ev.PipelineID, &ev.FromStageID, &ev.ToStageID, &ev.PerformedBy, &ev.PerformedAt, &ev.ReasonText)
	if err != nil {
		return FunnelEvent{}, fmt.Errorf("append funnel event: %w", err)
	}
	return ev, nil
}

// ListEvents retrieves funnel events newest first. The log is read-only
// here: no update or delete statement touches funnel_events anywhere.
func (r *Repo) ListEvents(ctx context.Context, ownerID uuid.UUID, f EventFilter) ([]FunnelEvent, error) {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}

	query := `
		SELECT e.id, e.lead_id, e.pipeline_id, e.from_stage_id, e.to_stage_id, e.performed_by, e.performed_at, e.reason_text
		FROM funnel_events e
		JOIN leads l ON l.id = e.lead_id
		WHERE l.owner_id = $1
			AND ($2::uuid IS NULL OR e.lead_id = $2)
			AND ($3::uuid IS NULL OR e.pipeline_id = $3)
			AND ($4::timestamptz IS NULL OR e.performed_at >= $4)
			AND ($5::timestamptz IS NULL OR e.performed_at <= $5)
		ORDER BY e.performed_at DESC, e.id DESC
		LIMIT $6`

	rows, err := r.pool.Query(ctx, query, ownerID, f.LeadID, f.PipelineID, f.From, f.To, limit)
	if err != nil {
		return nil, fmt.Errorf("list funnel events: %w", err)
	}
	defer rows.Close()

	var results []FunnelEvent
	for rows.Next() {
		var ev FunnelEvent
		if err := rows.Scan(&ev.ID, &ev.LeadID, &ev.PipelineID, &ev.FromStageID, &ev.ToStageID, &ev.PerformedBy, &ev.PerformedAt, &ev.ReasonText); err != nil {
			return nil, fmt.Errorf("scan funnel event: %w", err)
		}
		results = append(results, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate funnel events: %w", err)
	}

	return results, nil
}

// Ping satisfies the router's health check through the underlying pool.
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
