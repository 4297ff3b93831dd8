package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestDeriveLifecycle(t *testing.T) {
	tests := []struct {
		kind StageKind
		want Lifecycle
	}{
		{StageKindWon, LifecycleWon},
		{StageKindLost, LifecycleLost},
		{StageKindIntermediate, LifecycleActive},
		{StageKind("bogus"), LifecycleActive},
	}

	for _, tc := range tests {
		if got := DeriveLifecycle(tc.kind); got != tc.want {
			t.Errorf("DeriveLifecycle(%q) = %q, want %q", tc.kind, got, tc.want)
		}
	}
}

func TestValidateRuleOrder(t *testing.T) {
	pipelineA := uuid.New()
	pipelineB := uuid.New()
	source := StageRef{ID: uuid.New(), PipelineID: pipelineA, Kind: StageKindIntermediate}
	policy := EngagementPolicy{MinInteractions: 1}

	tests := []struct {
		name     string
		target   StageRef
		mc       MoveContext
		wantOK   bool
		wantCode Code
	}{
		{
			name:     "cross pipeline wins over everything",
			target:   StageRef{ID: uuid.New(), PipelineID: pipelineB, Kind: StageKindWon},
			mc:       MoveContext{}, // would also fail ReasonRequired, but rule 1 fires first
			wantCode: CodeCrossPipelineMove,
		},
		{
			name:     "same stage is a no-op",
			target:   source,
			wantCode: CodeNoOpMove,
		},
		{
			name:     "terminal target without reason",
			target:   StageRef{ID: uuid.New(), PipelineID: pipelineA, Kind: StageKindWon},
			mc:       MoveContext{InteractionCount: 5, ReasonText: "   "},
			wantCode: CodeReasonRequired,
		},
		{
			name:     "terminal target without engagement",
			target:   StageRef{ID: uuid.New(), PipelineID: pipelineA, Kind: StageKindLost},
			mc:       MoveContext{ReasonText: "went with competitor"},
			wantCode: CodeInsufficientEngagement,
		},
		{
			name:   "terminal target with interactions",
			target: StageRef{ID: uuid.New(), PipelineID: pipelineA, Kind: StageKindWon},
			mc:     MoveContext{InteractionCount: 2, ReasonText: "closed after demo"},
			wantOK: true,
		},
		{
			name:   "terminal target with scheduled next action only",
			target: StageRef{ID: uuid.New(), PipelineID: pipelineA, Kind: StageKindLost},
			mc:     MoveContext{HasNextAction: true, ReasonText: "no budget"},
			wantOK: true,
		},
		{
			name:   "intermediate target needs neither reason nor engagement",
			target: StageRef{ID: uuid.New(), PipelineID: pipelineA, Kind: StageKindIntermediate},
			wantOK: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Validate(source, tc.target, tc.mc, policy)
			if got.OK != tc.wantOK {
				t.Fatalf("Validate() OK = %v, want %v (verdict %+v)", got.OK, tc.wantOK, got)
			}
			if !tc.wantOK && got.Code != tc.wantCode {
				t.Errorf("Validate() code = %q, want %q", got.Code, tc.wantCode)
			}
			if tc.wantOK && (got.Code != "" || got.Reason != "") {
				t.Errorf("approved verdict carries refusal fields: %+v", got)
			}
			if !tc.wantOK && got.Reason == "" {
				t.Errorf("refusal without a reason: %+v", got)
			}
		})
	}
}

func TestValidateIsDeterministic(t *testing.T) {
	source := StageRef{ID: uuid.New(), PipelineID: uuid.New(), Kind: StageKindIntermediate}
	target := StageRef{ID: uuid.New(), PipelineID: source.PipelineID, Kind: StageKindWon}
	mc := MoveContext{InteractionCount: 1, ReasonText: "signed"}
	policy := EngagementPolicy{MinInteractions: 1}

	first := Validate(source, target, mc, policy)
	for i := 0; i < 50; i++ {
		if got := Validate(source, target, mc, policy); got != first {
			t.Fatalf("verdict changed between identical calls: %+v vs %+v", first, got)
		}
	}
}

func TestEngagementPolicyDisabled(t *testing.T) {
	policy := EngagementPolicy{MinInteractions: 0}
	if !policy.Satisfied(MoveContext{}) {
		t.Error("zero-threshold policy should always be satisfied")
	}
}
