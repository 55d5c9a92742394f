// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package resolver

import "errors"

var (
	// ErrNoBackends means the endpoint list was empty when a resolution began.
	ErrNoBackends = errors.New("resolver: no backends available")
	// ErrInvalidVideoID rejects identifiers that cannot be placed into a backend path.
	ErrInvalidVideoID = errors.New("resolver: invalid video id")

	errNotQualifying = errors.New("resolver: descriptor has no usable stream")
)
