// Package domain provides core business rules for the funnel bounded context.
package domain

import "github.com/google/uuid"

// StageKind marks a stage as an intermediate step or a terminal outcome.
type StageKind string

const (
	StageKindIntermediate StageKind = "intermediate"
	StageKindWon          StageKind = "won"
	StageKindLost         StageKind = "lost"
)

var knownStageKinds = map[StageKind]struct{}{
	StageKindIntermediate: {},
	StageKindWon:          {},
	StageKindLost:         {},
}

// IsKnownStageKind reports whether kind is one of the three stage kinds.
func IsKnownStageKind(kind StageKind) bool {
	_, ok := knownStageKinds[kind]
	return ok
}

// IsTerminal reports whether the kind marks a closed outcome. Terminal
// stages demand a reason and a minimum engagement before a lead may enter.
func (k StageKind) IsTerminal() bool {
	return k == StageKindWon || k == StageKindLost
}

// Lifecycle is the engine-owned status field on a lead. It is a pure
// function of the kind of the stage the lead currently occupies.
type Lifecycle string

const (
	LifecycleActive Lifecycle = "active"
	LifecycleWon    Lifecycle = "won"
	LifecycleLost   Lifecycle = "lost"
)

// DeriveLifecycle maps a stage kind to the lead lifecycle status.
func DeriveLifecycle(kind StageKind) Lifecycle {
	switch kind {
	case StageKindWon:
		return LifecycleWon
	case StageKindLost:
		return LifecycleLost
	default:
		return LifecycleActive
	}
}

// StageRef is the slice of a stage the validator needs: identity, owning
// pipeline, and kind. Position is deliberately absent; display order never
// participates in move decisions.
type StageRef struct {
	ID         uuid.UUID
	PipelineID uuid.UUID
	Kind       StageKind
}
