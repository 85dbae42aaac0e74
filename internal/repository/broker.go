package repository

import (
	"sync"

	"github.com/rocketscienceinc/tictactoe-sessions/internal/entity"
)

const subscriberBuffer = 16

// roomBroker - in-process fan-out of room events for stores without native push.
type roomBroker struct {
	mu          sync.Mutex
	subscribers map[string]map[*brokerSubscription]struct{}
}

func newRoomBroker() *roomBroker {
	return &roomBroker{
		subscribers: make(map[string]map[*brokerSubscription]struct{}),
	}
}

func (that *roomBroker) subscribe(channel string) *brokerSubscription {
	that.mu.Lock()
	defer that.mu.Unlock()

	sub := &brokerSubscription{
		broker:  that,
		channel: channel,
		events:  make(chan entity.RoomEvent, subscriberBuffer),
	}

	if that.subscribers[channel] == nil {
		that.subscribers[channel] = make(map[*brokerSubscription]struct{})
	}

	that.subscribers[channel][sub] = struct{}{}

	return sub
}

// publish - never blocks writers. A subscriber whose buffer is full loses its
// oldest queued event, so the latest row always reaches it.
func (that *roomBroker) publish(event entity.RoomEvent) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, channel := range []string{roomChannel(""), roomChannel(event.Room.ID)} {
		for sub := range that.subscribers[channel] {
			room := *event.Room
			sub.push(entity.RoomEvent{Type: event.Type, Room: &room})
		}
	}
}

func (that *roomBroker) remove(sub *brokerSubscription) {
	that.mu.Lock()
	defer that.mu.Unlock()

	subs := that.subscribers[sub.channel]
	if _, ok := subs[sub]; !ok {
		return
	}

	delete(subs, sub)
	if len(subs) == 0 {
		delete(that.subscribers, sub.channel)
	}

	close(sub.events)
}

type brokerSubscription struct {
	broker  *roomBroker
	channel string
	events  chan entity.RoomEvent
}

// push - called with the broker lock held, so it is the only sender.
func (that *brokerSubscription) push(event entity.RoomEvent) {
	for {
		select {
		case that.events <- event:
			return
		default:
		}

		select {
		case <-that.events:
		default:
		}
	}
}

func (that *brokerSubscription) Events() <-chan entity.RoomEvent {
	return that.events
}

func (that *brokerSubscription) Close() error {
	that.broker.remove(that)

	return nil
}
