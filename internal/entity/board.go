package entity

import (
	"encoding/json"
	"errors"
	"fmt"
)

const BoardSize = 9

type Mark string

const (
	MarkEmpty Mark = ""
	MarkX     Mark = "X"
	MarkO     Mark = "O"
)

var ErrUnknownMark = errors.New("unknown mark")

// Opponent - returns the other player's mark, empty stays empty.
func (that Mark) Opponent() Mark {
	switch that {
	case MarkX:
		return MarkO
	case MarkO:
		return MarkX
	default:
		return MarkEmpty
	}
}

func ParseMark(value string) (Mark, error) {
	switch Mark(value) {
	case MarkX, MarkO, MarkEmpty:
		return Mark(value), nil
	default:
		return MarkEmpty, fmt.Errorf("%w: %q", ErrUnknownMark, value)
	}
}

// Board - nine cells in row-major order.
type Board [BoardSize]Mark

func NewBoard() Board {
	return Board{}
}

func (that Board) IsFull() bool {
	for _, cell := range that {
		if cell == MarkEmpty {
			return false
		}
	}

	return true
}

// Filled - number of non-empty cells.
func (that Board) Filled() int {
	count := 0
	for _, cell := range that {
		if cell != MarkEmpty {
			count++
		}
	}

	return count
}

// MarshalJSON - empty cells are encoded as null, the layout the rooms table stores.
func (that Board) MarshalJSON() ([]byte, error) {
	cells := make([]*string, len(that))
	for i, cell := range that {
		if cell == MarkEmpty {
			continue
		}

		value := string(cell)
		cells[i] = &value
	}

	return json.Marshal(cells)
}

func (that *Board) UnmarshalJSON(data []byte) error {
	var cells []*string
	if err := json.Unmarshal(data, &cells); err != nil {
		return fmt.Errorf("failed to unmarshal board: %w", err)
	}

	if cells == nil {
		*that = Board{}
		return nil
	}

	if len(cells) != BoardSize {
		return fmt.Errorf("board must have %d cells, got %d", BoardSize, len(cells))
	}

	var board Board
	for i, cell := range cells {
		if cell == nil {
			continue
		}

		mark, err := ParseMark(*cell)
		if err != nil {
			return fmt.Errorf("cell %d: %w", i, err)
		}

		board[i] = mark
	}

	*that = board

	return nil
}
