package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
)

const (
	roomKeyPrefix = "room:"
	roomIndexKey  = "rooms"
	roomsChannel  = "rooms"
)

// RoomRepository - the remote record store holding one row per room.
type RoomRepository interface {
	Insert(ctx context.Context, room *entity.Room) (*entity.Room, error)
	Update(ctx context.Context, id string, patch entity.RoomPatch) (*entity.Room, error)
	GetByID(ctx context.Context, id string) (*entity.Room, error)
	ListByStatus(ctx context.Context, status string) ([]*entity.Room, error)

	// Subscribe - whole-row change events of one room, or of every room when id is empty.
	Subscribe(ctx context.Context, id string) (RoomSubscription, error)
}

type RoomSubscription interface {
	Events() <-chan entity.RoomEvent
	Close() error
}

func roomKey(id string) string {
	return roomKeyPrefix + id
}

func roomChannel(id string) string {
	if id == "" {
		return roomsChannel
	}

	return roomsChannel + ":" + id
}

type redisRoomRepository struct {
	logger *slog.Logger
	client *redis.Client
}

func NewRoomRepository(logger *slog.Logger, client *redis.Client) RoomRepository {
	return &redisRoomRepository{
		logger: logger.With("component", "room_repository"),
		client: client,
	}
}

func (that *redisRoomRepository) Insert(ctx context.Context, room *entity.Room) (*entity.Room, error) {
	roomJSON, err := json.Marshal(room)
	if err != nil {
		return nil, fmt.Errorf("could not marshal room: %w", err)
	}

	created, err := that.client.SetNX(ctx, roomKey(room.ID), roomJSON, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to insert room: %w", err)
	}

	if !created {
		return nil, fmt.Errorf("room %s already exists", room.ID)
	}

	if err = that.client.SAdd(ctx, roomIndexKey, room.ID).Err(); err != nil {
		return nil, fmt.Errorf("failed to index room: %w", err)
	}

	that.publish(ctx, entity.RoomEvent{Type: entity.RoomInserted, Room: room})

	return room, nil
}

// Update - read-modify-write of the row; the last writer wins.
func (that *redisRoomRepository) Update(ctx context.Context, id string, patch entity.RoomPatch) (*entity.Room, error) {
	room, err := that.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.ApplyTo(room)

	roomJSON, err := json.Marshal(room)
	if err != nil {
		return nil, fmt.Errorf("could not marshal room: %w", err)
	}

	if err = that.client.Set(ctx, roomKey(id), roomJSON, 0).Err(); err != nil {
		return nil, fmt.Errorf("failed to update room: %w", err)
	}

	that.publish(ctx, entity.RoomEvent{Type: entity.RoomUpdated, Room: room})

	return room, nil
}

func (that *redisRoomRepository) GetByID(ctx context.Context, id string) (*entity.Room, error) {
	response, err := that.client.Get(ctx, roomKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("room %s: %w", id, apperror.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get room by id: %w", err)
	}

	var room entity.Room
	if err = json.Unmarshal([]byte(response), &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return &room, nil
}

func (that *redisRoomRepository) ListByStatus(ctx context.Context, status string) ([]*entity.Room, error) {
	ids, err := that.client.SMembers(ctx, roomIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	if len(ids) == 0 {
		return []*entity.Room{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, roomKey(id))
	}

	values, err := that.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get rooms: %w", err)
	}

	rooms := make([]*entity.Room, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}

		var room entity.Room
		if err = json.Unmarshal([]byte(raw), &room); err != nil {
			return nil, fmt.Errorf("failed to unmarshal room: %w", err)
		}

		if status == "" || room.Status == status {
			rooms = append(rooms, &room)
		}
	}

	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].RoomName == rooms[j].RoomName {
			return rooms[i].ID < rooms[j].ID
		}

		return rooms[i].RoomName < rooms[j].RoomName
	})

	return rooms, nil
}

func (that *redisRoomRepository) Subscribe(ctx context.Context, id string) (RoomSubscription, error) {
	pubsub := that.client.Subscribe(ctx, roomChannel(id))

	// wait for the confirmation so no event published after Subscribe returns is lost
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to room changes: %w", err)
	}

	sub := &redisRoomSubscription{
		pubsub: pubsub,
		events: make(chan entity.RoomEvent),
		done:   make(chan struct{}),
	}

	go sub.run(that.logger.With("method", "Subscribe", "channel", roomChannel(id)))

	return sub, nil
}

// publish - notifies the table-wide channel and the row channel.
func (that *redisRoomRepository) publish(ctx context.Context, event entity.RoomEvent) {
	log := that.logger.With("method", "publish", "room_id", event.Room.ID)

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error("could not marshal room event", "error", err)
		return
	}

	for _, channel := range []string{roomChannel(""), roomChannel(event.Room.ID)} {
		if err := that.client.Publish(ctx, channel, payload).Err(); err != nil {
			log.Error("failed to publish room event", "channel", channel, "error", err)
		}
	}
}

type redisRoomSubscription struct {
	pubsub *redis.PubSub
	events chan entity.RoomEvent
	done   chan struct{}
	once   sync.Once
}

func (that *redisRoomSubscription) Events() <-chan entity.RoomEvent {
	return that.events
}

func (that *redisRoomSubscription) Close() error {
	var err error
	that.once.Do(func() {
		close(that.done)
		err = that.pubsub.Close()
	})

	if err != nil {
		return fmt.Errorf("failed to close subscription: %w", err)
	}

	return nil
}

func (that *redisRoomSubscription) run(log *slog.Logger) {
	defer close(that.events)

	for message := range that.pubsub.Channel() {
		var event entity.RoomEvent
		if err := json.Unmarshal([]byte(message.Payload), &event); err != nil {
			log.Error("failed to unmarshal room event", "error", err)
			continue
		}

		select {
		case that.events <- event:
		case <-that.done:
			return
		}
	}
}
