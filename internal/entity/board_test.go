package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoard_JSON(t *testing.T) {
	t.Run("Empty cells are encoded as null", func(t *testing.T) {
		// Given: a board with two marks
		board := Board{MarkX, MarkEmpty, MarkEmpty, MarkEmpty, MarkO}

		// When: encoding it
		data, err := json.Marshal(board)
		require.NoError(t, err)

		// Then: the remote layout uses nulls for empty cells
		assert.JSONEq(t, `["X",null,null,null,"O",null,null,null,null]`, string(data))
	})

	t.Run("Decodes the stored layout", func(t *testing.T) {
		// Given: a stored row board
		data := []byte(`[null,"O",null,null,"X",null,null,null,null]`)

		// When: decoding it
		var board Board
		err := json.Unmarshal(data, &board)

		// Then: the cells are restored
		require.NoError(t, err)
		assert.Equal(t, Board{MarkEmpty, MarkO, MarkEmpty, MarkEmpty, MarkX}, board)
	})

	t.Run("Null board decodes as empty", func(t *testing.T) {
		var board Board
		err := json.Unmarshal([]byte(`null`), &board)

		require.NoError(t, err)
		assert.Equal(t, NewBoard(), board)
	})

	t.Run("Rejects wrong length and unknown marks", func(t *testing.T) {
		var board Board

		require.Error(t, json.Unmarshal([]byte(`[null,null]`), &board))
		require.ErrorIs(t, json.Unmarshal([]byte(`["Z",null,null,null,null,null,null,null,null]`), &board), ErrUnknownMark)
	})
}

func TestBoard_Counters(t *testing.T) {
	board := Board{MarkX, MarkO, MarkX, MarkO, MarkX, MarkO, MarkO, MarkX, MarkO}

	assert.True(t, board.IsFull())
	assert.Equal(t, 9, board.Filled())
	assert.False(t, NewBoard().IsFull())
	assert.Equal(t, 0, NewBoard().Filled())
}

func TestMark_Opponent(t *testing.T) {
	assert.Equal(t, MarkO, MarkX.Opponent())
	assert.Equal(t, MarkX, MarkO.Opponent())
	assert.Equal(t, MarkEmpty, MarkEmpty.Opponent())
}
