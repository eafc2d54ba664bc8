package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		page, size       int
		wantFrom, wantSz int
	}{
		{name: "first page", page: 1, size: 20, wantFrom: 0, wantSz: 20},
		{name: "third page", page: 3, size: 10, wantFrom: 20, wantSz: 10},
		{name: "page below one", page: 0, size: 5, wantFrom: 0, wantSz: 5},
		{name: "size defaulted", page: 2, size: 0, wantFrom: DefaultPageSize, wantSz: DefaultPageSize},
		{name: "size capped", page: 1, size: 500, wantFrom: 0, wantSz: DefaultPageSize},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			from, size := Calculate(tt.page, tt.size)
			assert.Equal(t, tt.wantFrom, from)
			assert.Equal(t, tt.wantSz, size)
		})
	}
}

func TestParseIntDefault(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 7, ParseIntDefault("", 7))
	assert.Equal(t, 7, ParseIntDefault("x", 7))
	assert.Equal(t, 3, ParseIntDefault("3", 7))
}

func TestMeta(t *testing.T) {
	t.Parallel()

	m := Meta(2, 10, 10, 25)
	assert.Equal(t, int64(3), m.TotalPages)
	assert.True(t, m.HasPrev)
	assert.True(t, m.HasNext)

	m = Meta(3, 20, 10, 25)
	assert.False(t, m.HasNext)
}
