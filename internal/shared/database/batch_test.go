package database_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starbase-server/internal/shared/database"
)

func TestBatchWriterAutoFlushesAtSize(t *testing.T) {
	var flushes [][]int
	w := database.NewBatchWriter(3, func(items []int) error {
		flushes = append(flushes, items)
		return nil
	})

	for i := 1; i <= 7; i++ {
		require.NoError(t, w.Add(i))
	}

	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}}, flushes)
	assert.Equal(t, 1, w.Buffered())

	require.NoError(t, w.Flush())
	assert.Equal(t, [][]int{{1, 2, 3}, {4, 5, 6}, {7}}, flushes)
	assert.Zero(t, w.Buffered())
}

func TestBatchWriterEmptyFlushIsNoop(t *testing.T) {
	calls := 0
	w := database.NewBatchWriter(2, func(items []string) error {
		calls++
		return nil
	})

	require.NoError(t, w.Flush())
	assert.Zero(t, calls)
}

func TestBatchWriterPropagatesFlushError(t *testing.T) {
	boom := errors.New("insert failed")
	w := database.NewBatchWriter(1, func(items []int) error {
		return boom
	})

	assert.ErrorIs(t, w.Add(1), boom)
}

func TestBatchWriterMinimumSize(t *testing.T) {
	flushes := 0
	w := database.NewBatchWriter(0, func(items []int) error {
		flushes++
		return nil
	})

	require.NoError(t, w.Add(1))
	assert.Equal(t, 1, flushes, "size below one clamps to one")
}
