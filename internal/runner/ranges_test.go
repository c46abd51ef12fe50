package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		in      string
		want    Range
		wantErr bool
	}{
		{"1-5", Range{First: 0, Last: 4}, false},
		{"3-3", Range{First: 2, Last: 2}, false},
		{"0-5", Range{}, true},
		{"5-1", Range{}, true},
		{"1-", Range{}, true},
		{"a-b", Range{}, true},
		{"", Range{}, true},
		{"1-2-3", Range{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRange(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRangeSlice(t *testing.T) {
	items := []string{"a", "b", "c", "d"}

	selected, ok := Range{First: 1, Last: 2}.Slice(items)
	require.True(t, ok)
	assert.Equal(t, []string{"b", "c"}, selected)

	full, ok := Range{First: 0, Last: 3}.Slice(items)
	require.True(t, ok)
	assert.Equal(t, items, full)

	_, ok = Range{First: 0, Last: 4}.Slice(items)
	assert.False(t, ok, "range past the end must fail")

	_, ok = Range{First: 4, Last: 4}.Slice(items)
	assert.False(t, ok)
}

func TestRangeLength(t *testing.T) {
	assert.Equal(t, 3, Range{First: 2, Last: 4}.Length())
	assert.Equal(t, 1, Range{First: 0, Last: 0}.Length())
}
