package mapper

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapSlice(t *testing.T) {
	assert.Nil(t, MapSlice[int, string](nil, strconv.Itoa))
	assert.Equal(t, []string{"1", "2"}, MapSlice([]int{1, 2}, strconv.Itoa))
}

func TestMapSliceWithError(t *testing.T) {
	got, err := MapSliceWithError([]string{"1", "2"}, strconv.Atoi)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, got)

	_, err = MapSliceWithError([]string{"1", "x"}, strconv.Atoi)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "item 1")
}

type row struct{ id uint }

func TestMapSlicePtrWithID(t *testing.T) {
	double := func(r *row) (*row, error) {
		if r.id == 0 {
			return nil, nil
		}
		return &row{id: r.id * 2}, nil
	}
	idOf := func(r *row) uint { return r.id }

	got, err := MapSlicePtrWithID([]*row{{id: 1}, nil, {id: 0}, {id: 3}}, double, idOf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint(6), got[1].id)

	boom := errors.New("boom")
	_, err = MapSlicePtrWithID([]*row{{id: 7}}, func(*row) (*row, error) { return nil, boom }, idOf)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "ID 7")
}
