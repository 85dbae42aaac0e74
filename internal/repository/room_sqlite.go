package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
)

type sqliteRoomRepository struct {
	logger *slog.Logger
	conn   *sql.DB
	broker *roomBroker
}

// NewSQLiteRoomRepository - rooms table in sqlite; change events are fanned out in-process.
func NewSQLiteRoomRepository(logger *slog.Logger, conn *sql.DB) RoomRepository {
	return &sqliteRoomRepository{
		logger: logger.With("component", "sqlite_room_repository"),
		conn:   conn,
		broker: newRoomBroker(),
	}
}

func (that *sqliteRoomRepository) Insert(ctx context.Context, room *entity.Room) (*entity.Room, error) {
	query := `INSERT INTO rooms (id, room_name, player1, player2, board, status, current_turn)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	board, err := json.Marshal(room.Board)
	if err != nil {
		return nil, fmt.Errorf("could not marshal board: %w", err)
	}

	_, err = that.conn.ExecContext(ctx, query,
		room.ID, room.RoomName, room.Player1, room.Player2, string(board), room.Status, string(room.CurrentTurn))
	if err != nil {
		return nil, fmt.Errorf("can't insert room: %w", err)
	}

	that.broker.publish(entity.RoomEvent{Type: entity.RoomInserted, Room: room})

	return room, nil
}

// Update - read-modify-write of the row; the last writer wins.
func (that *sqliteRoomRepository) Update(ctx context.Context, id string, patch entity.RoomPatch) (*entity.Room, error) {
	room, err := that.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.ApplyTo(room)

	board, err := json.Marshal(room.Board)
	if err != nil {
		return nil, fmt.Errorf("could not marshal board: %w", err)
	}

	query := `UPDATE rooms SET player2 = ?, board = ?, status = ?, current_turn = ? WHERE id = ?`

	result, err := that.conn.ExecContext(ctx, query, room.Player2, string(board), room.Status, string(room.CurrentTurn), id)
	if err != nil {
		return nil, fmt.Errorf("can't update room: %w", err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return nil, fmt.Errorf("room %s: %w", id, apperror.ErrNotFound)
	}

	that.logger.Debug("room updated", "room_id", id, "status", room.Status)
	that.broker.publish(entity.RoomEvent{Type: entity.RoomUpdated, Room: room})

	return room, nil
}

func (that *sqliteRoomRepository) GetByID(ctx context.Context, id string) (*entity.Room, error) {
	query := `SELECT id, room_name, player1, player2, board, status, current_turn FROM rooms WHERE id = ?`

	room, err := scanRoom(that.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("room %s: %w", id, apperror.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("can't get room: %w", err)
	}

	return room, nil
}

func (that *sqliteRoomRepository) ListByStatus(ctx context.Context, status string) ([]*entity.Room, error) {
	query := `SELECT id, room_name, player1, player2, board, status, current_turn FROM rooms
		WHERE (? = '' OR status = ?) ORDER BY room_name, id`

	rows, err := that.conn.QueryContext(ctx, query, status, status)
	if err != nil {
		return nil, fmt.Errorf("can't list rooms: %w", err)
	}
	defer rows.Close()

	rooms := make([]*entity.Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("can't scan room: %w", err)
		}

		rooms = append(rooms, room)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("can't list rooms: %w", err)
	}

	return rooms, nil
}

func (that *sqliteRoomRepository) Subscribe(_ context.Context, id string) (RoomSubscription, error) {
	return that.broker.subscribe(roomChannel(id)), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (*entity.Room, error) {
	var (
		room  entity.Room
		board string
		turn  string
	)

	if err := row.Scan(&room.ID, &room.RoomName, &room.Player1, &room.Player2, &board, &room.Status, &turn); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(board), &room.Board); err != nil {
		return nil, fmt.Errorf("failed to unmarshal board: %w", err)
	}

	mark, err := entity.ParseMark(turn)
	if err != nil {
		return nil, err
	}

	room.CurrentTurn = mark

	return &room, nil
}
