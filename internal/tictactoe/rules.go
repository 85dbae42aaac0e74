package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
)

const boardSide = 3

var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Winner - returns the mark occupying a fully matched line, or empty.
func Winner(board entity.Board) entity.Mark {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != entity.MarkEmpty && a == b && b == c {
			return a
		}
	}

	return entity.MarkEmpty
}

func IsDraw(board entity.Board) bool {
	return Winner(board) == entity.MarkEmpty && board.IsFull()
}

// Evaluate - the status a board implies on its own.
func Evaluate(board entity.Board) entity.Outcome {
	if winner := Winner(board); winner != entity.MarkEmpty {
		return entity.Outcome{Status: entity.StatusWon, Winner: winner}
	}

	if board.IsFull() {
		return entity.Outcome{Status: entity.StatusDrawn}
	}

	return entity.Outcome{Status: entity.StatusInProgress}
}

func ValidCell(cell int) bool {
	return cell >= 0 && cell < entity.BoardSize
}

// CellCoords - row and column of a flat cell index.
func CellCoords(cell int) (int, int, error) {
	if !ValidCell(cell) {
		return 0, 0, fmt.Errorf("%w: %d", apperror.ErrInvalidCell, cell)
	}

	return cell / boardSide, cell % boardSide, nil
}

func CellIndex(row, col int) (int, error) {
	if row < 0 || row >= boardSide || col < 0 || col >= boardSide {
		return 0, fmt.Errorf("%w: row %d col %d", apperror.ErrInvalidCell, row, col)
	}

	return row*boardSide + col, nil
}
