package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "national format", input: "06 12 34 56 78", want: "+31612345678"},
		{name: "already e164", input: "+31612345678", want: "+31612345678"},
		{name: "foreign e164 kept", input: "+14155552671", want: "+14155552671"},
		{name: "garbage passes through", input: "not-a-number", want: "not-a-number"},
		{name: "whitespace trimmed", input: "  +31612345678 ", want: "+31612345678"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeE164(tt.input); got != tt.want {
				t.Errorf("NormalizeE164(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizePtr(t *testing.T) {
	if got := NormalizePtr(nil); got != nil {
		t.Errorf("NormalizePtr(nil) = %v, want nil", got)
	}

	empty := ""
	if got := NormalizePtr(&empty); got != nil {
		t.Errorf("NormalizePtr(empty) = %v, want nil", got)
	}

	raw := "0612345678"
	got := NormalizePtr(&raw)
	if got == nil || *got != "+31612345678" {
		t.Errorf("NormalizePtr(%q) = %v, want +31612345678", raw, got)
	}
}
