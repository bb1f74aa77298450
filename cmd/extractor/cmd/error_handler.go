package cmd

import (
	"bank-statement-engine/pkg/errors"
)

// ExitCodeFor maps an error from Execute to the driver's exit code
// scheme: 0 ok, 2 unsupported bank / invalid profile, 3 parse failure,
// 4 reconciliation failure with warnings, 1 anything else.
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if engineErr, ok := errors.AsEngineError(err); ok {
		return engineErr.GetExitCode()
	}
	return 1
}
