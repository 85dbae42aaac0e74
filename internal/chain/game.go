package chain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
)

const gameStruct = "Game"

// Contract entry functions.
const (
	FunctionCreateGame = "create_game"
	FunctionJoinGame   = "join_game"
	FunctionPlay       = "play"
)

var ErrUnexpectedObject = errors.New("unexpected object content")

// Contract - location of the tic-tac-toe module on chain.
type Contract struct {
	PackageID string
	Module    string
	GasBudget uint64
}

// GameType - fully qualified struct type of the game object.
func (that Contract) GameType() string {
	return that.PackageID + "::" + that.Module + "::" + gameStruct
}

func (that Contract) Call(function string, arguments ...any) MoveCall {
	return MoveCall{
		Package:   that.PackageID,
		Module:    that.Module,
		Function:  function,
		Arguments: arguments,
		GasBudget: that.GasBudget,
	}
}

type uidField struct {
	ID string `json:"id"`
}

type gameFields struct {
	ID      uidField     `json:"id"`
	PlayerX string       `json:"player_x"`
	PlayerO optionalAddr `json:"player_o"`
	Board   []flexUint8  `json:"board"`
	Turn    flexUint8    `json:"turn"`
	Status  flexUint8    `json:"status"`
	Result  flexUint8    `json:"result"`
}

// DecodeGame - the game fields of an object fetched with content.
func DecodeGame(object *ObjectData) (*entity.ChainGame, error) {
	if object == nil || object.Content == nil || object.Content.DataType != "moveObject" {
		return nil, fmt.Errorf("%w: no move object content", ErrUnexpectedObject)
	}

	var fields gameFields
	if err := json.Unmarshal(object.Content.Fields, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedObject, err)
	}

	if len(fields.Board) != entity.BoardSize {
		return nil, fmt.Errorf("%w: board has %d cells", ErrUnexpectedObject, len(fields.Board))
	}

	game := &entity.ChainGame{
		ID:      object.ObjectID,
		PlayerX: fields.PlayerX,
		PlayerO: string(fields.PlayerO),
		Turn:    uint8(fields.Turn),
		Status:  uint8(fields.Status),
		Result:  uint8(fields.Result),
	}

	if game.ID == "" {
		game.ID = fields.ID.ID
	}

	for i, cell := range fields.Board {
		game.Board[i] = uint8(cell)
	}

	return game, nil
}

// flexUint8 - u8 values come as JSON numbers, some nodes quote them.
type flexUint8 uint8

func (that *flexUint8) UnmarshalJSON(data []byte) error {
	text := string(bytes.Trim(data, `"`))

	value, err := strconv.ParseUint(text, 10, 8)
	if err != nil {
		return fmt.Errorf("invalid u8 %s: %w", data, err)
	}

	*that = flexUint8(value)

	return nil
}

// optionalAddr - an address that may be absent: a plain string, null, or an Option vector.
type optionalAddr string

func (that *optionalAddr) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*that = ""
		return nil
	}

	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		*that = optionalAddr(plain)
		return nil
	}

	var option struct {
		Vec    []string `json:"vec"`
		Fields *struct {
			Vec []string `json:"vec"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(data, &option); err != nil {
		return fmt.Errorf("invalid optional address %s: %w", data, err)
	}

	vec := option.Vec
	if option.Fields != nil {
		vec = option.Fields.Vec
	}

	*that = ""
	if len(vec) > 0 {
		*that = optionalAddr(vec[0])
	}

	return nil
}
