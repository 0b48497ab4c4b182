package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShallow(t *testing.T) {
	shared := []int{1, 2}
	m := map[string]int{"a": 1}
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	type inner struct {
		Tags []string
	}
	type rec struct {
		ID    string
		When  time.Time
		Nums  []int
		Inner inner
		Ptr   *int
	}
	one := 1
	tags := []string{"x"}

	cases := []struct {
		name string
		eq   bool
		a, b any
	}{
		{"ints equal", true, 1, 1},
		{"ints differ", false, 1, 2},
		{"nil slices", true, []int(nil), []int(nil)},
		{"nil vs empty", false, []int(nil), []int{}},
		{"same elements new slice", true, []int{1, 2}, []int{1, 2}},
		{"maps same entries", true, map[string]int{"a": 1}, map[string]int{"a": 1}},
		{"maps differ", false, map[string]int{"a": 1}, map[string]int{"a": 2}},
		{"struct same refs", true,
			rec{ID: "r", When: now, Nums: shared, Inner: inner{Tags: tags}, Ptr: &one},
			rec{ID: "r", When: now, Nums: shared, Inner: inner{Tags: tags}, Ptr: &one}},
		{"struct copied slice", false,
			rec{ID: "r", Nums: shared},
			rec{ID: "r", Nums: append([]int(nil), shared...)}},
		{"struct nested map identity", true,
			struct{ M map[string]int }{m}, struct{ M map[string]int }{m}},
		{"slice of structs holding slices", true,
			[]rec{{Nums: shared}}, []rec{{Nums: shared}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.eq, Shallow(tc.a, tc.b))
		})
	}
}

func TestShallow_Typed(t *testing.T) {
	type s struct {
		A int
		B []string
	}
	b := []string{"q"}
	assert.True(t, Shallow(s{1, b}, s{1, b}))
	assert.False(t, Shallow(s{1, b}, s{2, b}))
}
