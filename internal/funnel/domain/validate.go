package domain

import "strings"

// Code identifies why a move was refused. Codes are stable API values;
// clients branch on them instead of parsing reason text.
type Code string

const (
	CodeCrossPipelineMove      Code = "CrossPipelineMove"
	CodeNoOpMove               Code = "NoOpMove"
	CodeReasonRequired         Code = "ReasonRequired"
	CodeInsufficientEngagement Code = "InsufficientEngagement"
	CodeAlreadyPlaced          Code = "AlreadyPlaced"
	CodeStaleLeadState         Code = "StaleLeadState"
)

// Verdict is the outcome of validating a proposed move. Exactly one of
// OK or Code is meaningful: an approved verdict has OK=true and an empty
// code, a refusal has OK=false with a code and a human-readable reason.
type Verdict struct {
	OK     bool
	Code   Code
	Reason string
}

func approve() Verdict {
	return Verdict{OK: true}
}

func refuse(code Code, reason string) Verdict {
	return Verdict{Code: code, Reason: reason}
}

// MoveContext carries the lead-side facts the validator consults:
// how engaged the lead is, and the operator-supplied reason for the move.
type MoveContext struct {
	InteractionCount int
	HasNextAction    bool
	ReasonText       string
}

// EngagementPolicy is the pipeline-level bar for closing a lead.
// A lead satisfies it with MinInteractions recorded interactions OR a
// scheduled next action. MinInteractions of zero disables the check.
type EngagementPolicy struct {
	MinInteractions int
}

// Satisfied reports whether the move context clears the engagement bar.
func (p EngagementPolicy) Satisfied(mc MoveContext) bool {
	if p.MinInteractions <= 0 {
		return true
	}
	return mc.InteractionCount >= p.MinInteractions || mc.HasNextAction
}

// Validate decides whether a lead may move from source to target.
// It is total and deterministic: the same inputs always yield the same
// verdict, and it performs no I/O. Rules are checked in order and the
// first failure wins:
//
//  1. target must belong to the same pipeline as source (transfers are a
//     separate operation and never reach this function)
//  2. moving onto the current stage is a no-op
//  3. a terminal target requires a non-blank reason
//  4. a terminal target requires the engagement policy to be satisfied
func Validate(source, target StageRef, mc MoveContext, policy EngagementPolicy) Verdict {
	if target.PipelineID != source.PipelineID {
		return refuse(CodeCrossPipelineMove, "target stage belongs to a different pipeline; use transfer instead")
	}

	if target.ID == source.ID {
		return refuse(CodeNoOpMove, "lead is already in this stage")
	}

	if target.Kind.IsTerminal() {
		if strings.TrimSpace(mc.ReasonText) == "" {
			return refuse(CodeReasonRequired, "closing a lead requires a reason")
		}
		if !policy.Satisfied(mc) {
			return refuse(CodeInsufficientEngagement, "lead has no recorded interaction or scheduled next action")
		}
	}

	return approve()
}
