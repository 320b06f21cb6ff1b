package model

import "testing"

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			name: "no details",
			err:  &APIError{Code: ErrNotFound, Message: "run 'run_123' not found"},
			want: "NOT_FOUND: run 'run_123' not found",
		},
		{
			name: "one detail",
			err:  NewValidationError("invalid instance", FieldError{Field: "machines", Message: "must be at least 1"}),
			want: "VALIDATION_ERROR: invalid instance (machines: must be at least 1)",
		},
		{
			name: "several details",
			err: NewValidationError("invalid instance",
				FieldError{Field: "machines", Message: "must be at least 1"},
				FieldError{Field: "jobs", Message: "instance has no jobs"},
			),
			want: "VALIDATION_ERROR: invalid instance (machines: must be at least 1, and 1 more)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("run", "run_abc")
	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Message != "run 'run_abc' not found" {
		t.Errorf("Message = %q, want %q", err.Message, "run 'run_abc' not found")
	}
}
