package game

import (
	"time"

	"go.uber.org/zap"

	"github.com/setfolk/set-table-go/internal/game/cards"
)

// Display is the sink for everything the game wants shown. Implementations
// must never block and must never fail in a way the game can observe; calls
// are fire-and-forget.
type Display interface {
	PlaceCard(card cards.Card, slot int)
	RemoveCard(slot int)
	PlaceToken(player, slot int)
	RemoveToken(player, slot int)
	SetScore(player, score int)
	SetFreeze(player int, remaining time.Duration)
	SetCountdown(remaining time.Duration, warn bool)
	AnnounceWinners(players []int)
}

// NopDisplay discards every notification.
type NopDisplay struct{}

func (NopDisplay) PlaceCard(cards.Card, int)          {}
func (NopDisplay) RemoveCard(int)                     {}
func (NopDisplay) PlaceToken(int, int)                {}
func (NopDisplay) RemoveToken(int, int)               {}
func (NopDisplay) SetScore(int, int)                  {}
func (NopDisplay) SetFreeze(int, time.Duration)       {}
func (NopDisplay) SetCountdown(time.Duration, bool)   {}
func (NopDisplay) AnnounceWinners([]int)              {}

// LogDisplay writes display notifications to a zap logger. Board churn is
// logged at debug, milestones at info.
type LogDisplay struct {
	Log *zap.Logger
}

func (d LogDisplay) PlaceCard(card cards.Card, slot int) {
	d.Log.Debug("place card", zap.Int("card", int(card)), zap.Int("slot", slot))
}

func (d LogDisplay) RemoveCard(slot int) {
	d.Log.Debug("remove card", zap.Int("slot", slot))
}

func (d LogDisplay) PlaceToken(player, slot int) {
	d.Log.Debug("place token", zap.Int("player", player), zap.Int("slot", slot))
}

func (d LogDisplay) RemoveToken(player, slot int) {
	d.Log.Debug("remove token", zap.Int("player", player), zap.Int("slot", slot))
}

func (d LogDisplay) SetScore(player, score int) {
	d.Log.Info("score", zap.Int("player", player), zap.Int("score", score))
}

func (d LogDisplay) SetFreeze(player int, remaining time.Duration) {
	d.Log.Debug("freeze", zap.Int("player", player), zap.Duration("remaining", remaining))
}

func (d LogDisplay) SetCountdown(remaining time.Duration, warn bool) {
	d.Log.Debug("countdown", zap.Duration("remaining", remaining), zap.Bool("warn", warn))
}

func (d LogDisplay) AnnounceWinners(players []int) {
	d.Log.Info("winners", zap.Ints("players", players))
}

// EventType indicates the category of a display event.
type EventType string

const (
	EventPlaceCard   EventType = "PLACE_CARD"
	EventRemoveCard  EventType = "REMOVE_CARD"
	EventPlaceToken  EventType = "PLACE_TOKEN"
	EventRemoveToken EventType = "REMOVE_TOKEN"
	EventScore       EventType = "SCORE"
	EventFreeze      EventType = "FREEZE"
	EventCountdown   EventType = "COUNTDOWN"
	EventWinners     EventType = "WINNERS"
)

// Event is one display notification in serializable form, suitable for
// relaying to external observers.
type Event struct {
	Type      EventType     `json:"type"`
	Player    int           `json:"player,omitempty"`
	Slot      int           `json:"slot,omitempty"`
	Card      int           `json:"card,omitempty"`
	Score     int           `json:"score,omitempty"`
	Remaining time.Duration `json:"remaining,omitempty"`
	Warn      bool          `json:"warn,omitempty"`
	Winners   []int         `json:"winners,omitempty"`
	At        time.Time     `json:"at"`
}

// FeedDisplay converts notifications into Events on a buffered channel.
// When the buffer is full events are dropped; a slow observer must never
// stall the game.
type FeedDisplay struct {
	events chan Event
}

// NewFeedDisplay creates a feed with the given buffer size.
func NewFeedDisplay(buffer int) *FeedDisplay {
	return &FeedDisplay{events: make(chan Event, buffer)}
}

// Events returns the channel observers read from.
func (d *FeedDisplay) Events() <-chan Event { return d.events }

func (d *FeedDisplay) emit(ev Event) {
	ev.At = time.Now()
	select {
	case d.events <- ev:
	default:
	}
}

func (d *FeedDisplay) PlaceCard(card cards.Card, slot int) {
	d.emit(Event{Type: EventPlaceCard, Card: int(card), Slot: slot})
}

func (d *FeedDisplay) RemoveCard(slot int) {
	d.emit(Event{Type: EventRemoveCard, Slot: slot})
}

func (d *FeedDisplay) PlaceToken(player, slot int) {
	d.emit(Event{Type: EventPlaceToken, Player: player, Slot: slot})
}

func (d *FeedDisplay) RemoveToken(player, slot int) {
	d.emit(Event{Type: EventRemoveToken, Player: player, Slot: slot})
}

func (d *FeedDisplay) SetScore(player, score int) {
	d.emit(Event{Type: EventScore, Player: player, Score: score})
}

func (d *FeedDisplay) SetFreeze(player int, remaining time.Duration) {
	d.emit(Event{Type: EventFreeze, Player: player, Remaining: remaining})
}

func (d *FeedDisplay) SetCountdown(remaining time.Duration, warn bool) {
	d.emit(Event{Type: EventCountdown, Remaining: remaining, Warn: warn})
}

func (d *FeedDisplay) AnnounceWinners(players []int) {
	d.emit(Event{Type: EventWinners, Winners: players})
}

// MultiDisplay fans every notification out to all wrapped displays.
type MultiDisplay []Display

func (m MultiDisplay) PlaceCard(card cards.Card, slot int) {
	for _, d := range m {
		d.PlaceCard(card, slot)
	}
}

func (m MultiDisplay) RemoveCard(slot int) {
	for _, d := range m {
		d.RemoveCard(slot)
	}
}

func (m MultiDisplay) PlaceToken(player, slot int) {
	for _, d := range m {
		d.PlaceToken(player, slot)
	}
}

func (m MultiDisplay) RemoveToken(player, slot int) {
	for _, d := range m {
		d.RemoveToken(player, slot)
	}
}

func (m MultiDisplay) SetScore(player, score int) {
	for _, d := range m {
		d.SetScore(player, score)
	}
}

func (m MultiDisplay) SetFreeze(player int, remaining time.Duration) {
	for _, d := range m {
		d.SetFreeze(player, remaining)
	}
}

func (m MultiDisplay) SetCountdown(remaining time.Duration, warn bool) {
	for _, d := range m {
		d.SetCountdown(remaining, warn)
	}
}

func (m MultiDisplay) AnnounceWinners(players []int) {
	for _, d := range m {
		d.AnnounceWinners(players)
	}
}

var (
	_ Display = NopDisplay{}
	_ Display = LogDisplay{}
	_ Display = (*FeedDisplay)(nil)
	_ Display = MultiDisplay{}
)
