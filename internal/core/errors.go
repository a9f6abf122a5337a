// Licensed under the MIT License. See LICENSE file in the project root for details.

package registry

import "errors"

// Configuration errors. Both leave the registry's prior policy unchanged:
// a Configure call is all-or-nothing.
var (
	// ErrMaxAge reports a negative max age.
	ErrMaxAge = errors.New("max age must be >= 0")

	// ErrCheckInterval reports a check interval below 1.
	ErrCheckInterval = errors.New("check interval must be >= 1")
)
