// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package validators checks the account and challenge payloads accepted by
// the reference server before they reach storage. Field names restrict a
// call to a subset of the checks.
package validators

import "context"

// Validator validates obj, optionally limited to the named fields.
// Unsupported types return ErrUnsupportedType.
type Validator interface {
	Validate(ctx context.Context, obj any, fields ...string) error
}
