package facts

import (
	"context"
	"errors"
)

var (
	// ErrDuplicateFact is returned when a fact name is registered twice.
	ErrDuplicateFact = errors.New("fact already registered")

	// ErrInvalidDefinition is returned for definitions without a name or value.
	ErrInvalidDefinition = errors.New("invalid fact definition")
)

// ValueFunc computes the value of a fact. It must be idempotent and free of
// side effects; a Set may call it at most once.
type ValueFunc func() string

// Definition binds a fact name to the function that produces its value.
type Definition struct {
	Name  string
	Value ValueFunc
}

// Static returns a definition whose value is already known.
func Static(name, value string) Definition {
	return Definition{
		Name:  name,
		Value: func() string { return value },
	}
}

// Collector produces fact definitions. Collect is called once per gathering
// and should do all of its I/O up front; the returned ValueFuncs are expected
// to read only from data captured during that call.
type Collector interface {
	// Name identifies the collector in logs and metrics.
	Name() string

	// Collect returns the definitions this collector publishes.
	Collect(ctx context.Context) ([]Definition, error)
}
