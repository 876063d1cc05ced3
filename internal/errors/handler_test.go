package apperrors

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestHandleEvaluationError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name         string
		err          error
		duration     time.Duration
		expectedCode int
		expectedMsg  string
	}{
		{
			name:         "No Error",
			err:          nil,
			expectedCode: ExitSuccess,
			expectedMsg:  "",
		},
		{
			name:         "Canceled Error",
			err:          context.Canceled,
			duration:     500 * time.Millisecond,
			expectedCode: ExitErrorCanceled,
			expectedMsg:  "Status: Canceled after 500ms.",
		},
		{
			name:         "Convergence Error",
			err:          fmt.Errorf("term pp_mm: %w", &ConvergenceError{Depth: 3}),
			expectedCode: ExitErrorConvergence,
			expectedMsg:  "Status: Failure (no convergence)",
		},
		{
			name:         "Config Error",
			err:          NewConfigError("mean galaxy density is zero"),
			duration:     time.Second,
			expectedCode: ExitErrorConfig,
			expectedMsg:  "Status: Failure (configuration) after 1s: mean galaxy density is zero",
		},
		{
			name:         "Generic Error",
			err:          fmt.Errorf("random error"),
			expectedCode: ExitErrorGeneric,
			expectedMsg:  "Status: Failure. An unexpected error occurred: random error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out := new(bytes.Buffer)
			code := HandleEvaluationError(tt.err, tt.duration, out)

			if code != tt.expectedCode {
				t.Errorf("HandleEvaluationError() code = %v, want %v", code, tt.expectedCode)
			}

			if tt.expectedMsg != "" && !strings.Contains(out.String(), tt.expectedMsg) {
				t.Errorf("HandleEvaluationError() output = %q, want %q", out.String(), tt.expectedMsg)
			}
		})
	}
}
