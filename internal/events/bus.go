// Package events is the in-process broadcast channel between the save store,
// sessions and push clients.
package events

import (
	"sync"

	"idle_tapper/internal/logger"
	"idle_tapper/internal/metrics"
)

type Type string

const (
	TypeSaveChanged       Type = "save_changed"
	TypeMapBonusesChanged Type = "map_bonuses_changed"
	TypeNavigate          Type = "navigate"
)

type SaveChanged struct {
	Revision      int64 `json:"revision"`
	Balance       int64 `json:"balance"`
	TotalEarnings int64 `json:"totalEarnings"`
}

type MapBonusesChanged struct {
	APSBonus       float64 `json:"apsBonus"`
	CouponBonus    float64 `json:"couponBonus"`
	CountriesOwned int     `json:"countriesOwned"`
}

type Navigate struct {
	Tab string `json:"tab"`
}

// Event is one notification for one player.
type Event struct {
	PlayerID int64 `json:"-"`
	Type     Type  `json:"type"`
	Payload  any   `json:"payload"`
}

const defaultBuffer = 32

// Bus fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]*Subscription
}

type Subscription struct {
	id       int
	playerID int64 // 0 receives every player's events
	C        <-chan Event
	ch       chan Event
}

func NewBus() *Bus {
	return &Bus{subs: map[int]*Subscription{}}
}

// Subscribe registers for one player's events, or all players with id 0.
func (b *Bus) Subscribe(playerID int64, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{id: b.nextID, playerID: playerID, C: ch, ch: ch}
	b.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes the subscription and closes its channel.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub.id]; !ok {
		return
	}
	delete(b.subs, sub.id)
	close(sub.ch)
}

func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.playerID != 0 && sub.playerID != ev.PlayerID {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			metrics.EventsDropped.WithLabelValues(string(ev.Type)).Inc()
			logger.Warn("event dropped, subscriber full", "type", ev.Type, "player_id", ev.PlayerID)
		}
	}
}

func (b *Bus) PublishSaveChanged(playerID int64, p SaveChanged) {
	b.Publish(Event{PlayerID: playerID, Type: TypeSaveChanged, Payload: p})
}

func (b *Bus) PublishMapBonuses(playerID int64, p MapBonusesChanged) {
	b.Publish(Event{PlayerID: playerID, Type: TypeMapBonusesChanged, Payload: p})
}

func (b *Bus) PublishNavigate(playerID int64, tab string) {
	b.Publish(Event{PlayerID: playerID, Type: TypeNavigate, Payload: Navigate{Tab: tab}})
}
