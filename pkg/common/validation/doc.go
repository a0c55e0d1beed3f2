// Package validation provides common validation utilities for configuration
// parameters across the pace library.
//
// Every helper returns nil or a *errors.ValidationError, which unwraps to
// errors.ErrInvalidConfiguration.
package validation
