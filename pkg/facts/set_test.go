package facts

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_AddAndValue(t *testing.T) {
	set := NewSet()
	require.NoError(t, set.Add(Static("b_fact", "2"), Static("a_fact", "1")))

	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []string{"a_fact", "b_fact"}, set.Names())
	assert.True(t, set.Has("a_fact"))

	v, ok := set.Value("a_fact")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok = set.Value("missing")
	assert.False(t, ok)
}

func TestSet_AddRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		defs []Definition
		want error
	}{
		{"empty name", []Definition{Static("", "x")}, ErrInvalidDefinition},
		{"nil value", []Definition{{Name: "x"}}, ErrInvalidDefinition},
		{"duplicate in batch", []Definition{Static("x", "1"), Static("x", "2")}, ErrDuplicateFact},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := NewSet()
			err := set.Add(tt.defs...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 0, set.Len(), "failed Add must not register anything")
		})
	}
}

func TestSet_AddRejectsExistingName(t *testing.T) {
	set := NewSet()
	require.NoError(t, set.Add(Static("x", "1")))

	err := set.Add(Static("y", "2"), Static("x", "3"))
	assert.ErrorIs(t, err, ErrDuplicateFact)
	assert.Equal(t, []string{"x"}, set.Names())
}

func TestSet_ValueIsLazyAndMemoized(t *testing.T) {
	var calls atomic.Int32
	set := NewSet()
	require.NoError(t, set.Add(Definition{
		Name: "lazy",
		Value: func() string {
			calls.Add(1)
			return "computed"
		},
	}))

	assert.Equal(t, int32(0), calls.Load(), "value computed before it was requested")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, ok := set.Value("lazy")
			assert.True(t, ok)
			assert.Equal(t, "computed", v)
		}()
	}
	wg.Wait()

	assert.Equal(t, "computed", set.Resolve()["lazy"])
	assert.Equal(t, int32(1), calls.Load())
}

func TestSet_Select(t *testing.T) {
	set := NewSet()
	require.NoError(t, set.Add(Static("a", "1"), Static("b", "2")))

	assert.Equal(t, map[string]string{"b": "2"}, set.Select("b", "nope"))
}

type stubCollector struct {
	name string
	defs []Definition
	err  error
}

func (s stubCollector) Name() string { return s.name }

func (s stubCollector) Collect(context.Context) ([]Definition, error) {
	return s.defs, s.err
}

func TestGather(t *testing.T) {
	set, err := Gather(context.Background(),
		stubCollector{name: "one", defs: []Definition{Static("a", "1")}},
		stubCollector{name: "broken", err: errors.New("boom")},
		stubCollector{name: "two", defs: []Definition{Static("b", "2")}},
	)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, set.Resolve())
}

func TestGather_ConflictingCollectors(t *testing.T) {
	_, err := Gather(context.Background(),
		stubCollector{name: "one", defs: []Definition{Static("a", "1")}},
		stubCollector{name: "two", defs: []Definition{Static("a", "2")}},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateFact)
	assert.Contains(t, err.Error(), "collector two")
}

func TestGather_NoCollectors(t *testing.T) {
	set, err := Gather(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
}
