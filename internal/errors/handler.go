package apperrors

import (
	"fmt"
	"io"
	"time"
)

// HandleEvaluationError formats and prints the outcome of a failed
// power-spectrum evaluation and maps it onto a process exit code. It
// distinguishes convergence failures, configuration errors and cancellation
// so that scripts driving the developer tools can react to each.
//
// Parameters:
//   - err: The error that occurred.
//   - duration: How long the evaluation ran before failing (0 to omit).
//   - out: The io.Writer to which the message is written.
//
// Returns:
//   - int: The exit code for the error class.
func HandleEvaluationError(err error, duration time.Duration, out io.Writer) int {
	if err == nil {
		return ExitSuccess
	}

	msgSuffix := ""
	if duration > 0 {
		msgSuffix = fmt.Sprintf(" after %s", duration)
	}

	if IsContextError(err) {
		fmt.Fprintf(out, "Status: Canceled%s.\n", msgSuffix)
		return ExitErrorCanceled
	}
	if IsConvergenceError(err) {
		fmt.Fprintf(out, "Status: Failure (no convergence)%s: %v\n", msgSuffix, err)
		return ExitErrorConvergence
	}
	if IsConfigError(err) {
		fmt.Fprintf(out, "Status: Failure (configuration)%s: %v\n", msgSuffix, err)
		return ExitErrorConfig
	}
	fmt.Fprintf(out, "Status: Failure. An unexpected error occurred%s: %v\n", msgSuffix, err)
	return ExitErrorGeneric
}
