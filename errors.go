package elmtest

import "errors"

// Sentinel errors.
var (
	// ErrConfigNotFound is returned when no .elmtest.yaml is found.
	ErrConfigNotFound = errors.New("elmtest: no .elmtest.yaml found")

	// ErrUnknownKind is returned when a declaration has an unknown type tag.
	ErrUnknownKind = errors.New("elmtest: unknown declaration type")

	// ErrNotTestModule is returned when a file has no module declaration.
	ErrNotTestModule = errors.New("elmtest: no module declaration")
)
