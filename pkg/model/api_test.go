package model

import "testing"

func TestRunQuery_Clamp(t *testing.T) {
	tests := []struct {
		name       string
		input      RunQuery
		wantLimit  int
		wantOffset int
	}{
		{"zero", RunQuery{}, 20, 0},
		{"negative limit", RunQuery{Limit: -5}, 20, 0},
		{"over max", RunQuery{Limit: 500}, 100, 0},
		{"negative offset", RunQuery{Limit: 10, Offset: -3}, 10, 0},
		{"in range", RunQuery{Limit: 50, Offset: 10}, 50, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.input.Clamp()
			if tt.input.Limit != tt.wantLimit || tt.input.Offset != tt.wantOffset {
				t.Errorf("Clamp() = limit %d offset %d, want %d %d",
					tt.input.Limit, tt.input.Offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestRunQuery_Page(t *testing.T) {
	tests := []struct {
		q       RunQuery
		total   int
		hasMore bool
	}{
		{RunQuery{Limit: 2}, 3, true},
		{RunQuery{Limit: 2, Offset: 2}, 3, false},
		{RunQuery{Limit: 2, Offset: 1}, 3, false},
		{DefaultRunQuery(), 0, false},
	}
	for _, tt := range tests {
		pg := tt.q.Page(tt.total)
		if pg.HasMore != tt.hasMore || pg.Total != tt.total || pg.Limit != tt.q.Limit {
			t.Errorf("%+v.Page(%d) = %+v, want has_more %v", tt.q, tt.total, pg, tt.hasMore)
		}
	}
}
