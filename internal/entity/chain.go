package entity

import (
	"errors"
	"fmt"
)

// Cell values of the on-chain board.
const (
	ChainCellEmpty uint8 = 0
	ChainCellX     uint8 = 1
	ChainCellO     uint8 = 2
)

// Status values of the on-chain game.
const (
	ChainStatusWaiting  uint8 = 0
	ChainStatusPlaying  uint8 = 1
	ChainStatusFinished uint8 = 2
)

// Result values of the on-chain game.
const (
	ChainResultNone uint8 = 0
	ChainResultXWin uint8 = 1
	ChainResultOWin uint8 = 2
	ChainResultDraw uint8 = 3
)

var ErrInvalidChainValue = errors.New("invalid on-chain value")

// ChainGame - fields of the game object stored by the contract.
type ChainGame struct {
	ID      string
	PlayerX string
	PlayerO string
	Board   [BoardSize]uint8
	Turn    uint8
	Status  uint8
	Result  uint8
}

func (that *ChainGame) IsWaiting() bool {
	return that.Status == ChainStatusWaiting
}

// Snapshot - decodes the numeric contract fields into the uniform snapshot form.
func (that *ChainGame) Snapshot() (Snapshot, error) {
	var board Board
	for i, cell := range that.Board {
		mark, err := markFromChainCell(cell)
		if err != nil {
			return Snapshot{}, fmt.Errorf("cell %d: %w", i, err)
		}

		board[i] = mark
	}

	turn, err := markFromChainCell(that.Turn)
	if err != nil || turn == MarkEmpty {
		return Snapshot{}, fmt.Errorf("%w: turn %d", ErrInvalidChainValue, that.Turn)
	}

	var phase Phase
	switch that.Status {
	case ChainStatusWaiting:
		phase = PhaseWaiting
	case ChainStatusPlaying:
		phase = PhasePlaying
	case ChainStatusFinished:
		phase = PhaseFinished
	default:
		return Snapshot{}, fmt.Errorf("%w: status %d", ErrInvalidChainValue, that.Status)
	}

	snapshot := Snapshot{
		Ref:     SessionRef{Mode: ModeOnChain, ID: that.ID},
		Board:   board,
		Turn:    turn,
		Phase:   phase,
		PlayerX: that.PlayerX,
		PlayerO: that.PlayerO,
	}

	if phase == PhaseFinished {
		result, err := outcomeFromChainResult(that.Result)
		if err != nil {
			return Snapshot{}, err
		}

		snapshot.Result = result
	}

	return snapshot, nil
}

func markFromChainCell(value uint8) (Mark, error) {
	switch value {
	case ChainCellEmpty:
		return MarkEmpty, nil
	case ChainCellX:
		return MarkX, nil
	case ChainCellO:
		return MarkO, nil
	default:
		return MarkEmpty, fmt.Errorf("%w: cell %d", ErrInvalidChainValue, value)
	}
}

func outcomeFromChainResult(value uint8) (*Outcome, error) {
	switch value {
	case ChainResultNone:
		return nil, nil
	case ChainResultXWin:
		return &Outcome{Status: StatusWon, Winner: MarkX}, nil
	case ChainResultOWin:
		return &Outcome{Status: StatusWon, Winner: MarkO}, nil
	case ChainResultDraw:
		return &Outcome{Status: StatusDrawn}, nil
	default:
		return nil, fmt.Errorf("%w: result %d", ErrInvalidChainValue, value)
	}
}
