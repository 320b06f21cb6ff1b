package model

import "testing"

func TestParseRunState(t *testing.T) {
	tests := []struct {
		in     string
		want   RunState
		wantOK bool
	}{
		{"COMPLETED", RunStateCompleted, true},
		{"CAPPED", RunStateCapped, true},
		{"FAILED", RunStateFailed, true},
		{"completed", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseRunState(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseRunState(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
