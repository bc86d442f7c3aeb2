package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/setfolk/set-table-go/internal/config"
)

func fastConfig() config.Config {
	cfg := config.Default()
	cfg.Game.TurnTimeout = 150 * time.Millisecond
	cfg.Game.WarnThreshold = 50 * time.Millisecond
	cfg.Game.PointFreeze = 10 * time.Millisecond
	cfg.Game.PenaltyFreeze = 10 * time.Millisecond
	cfg.Game.Tick = 5 * time.Millisecond
	cfg.Game.BotPressDelay = time.Millisecond
	cfg.Game.Seed = 42
	return cfg
}

func TestNewEngine(t *testing.T) {
	e := NewEngine(fastConfig(), nil, zap.NewNop())

	assert.NotEmpty(t, e.ID())
	require.Len(t, e.Players(), 2)
	assert.Equal(t, "bot-0", e.Player(0).Name())
	assert.Equal(t, "bot-1", e.Player(1).Name())
	assert.False(t, e.Player(0).Human())
	assert.Equal(t, 12, e.table.Size())
}

func TestEngineSeededDecksMatch(t *testing.T) {
	a := NewEngine(fastConfig(), nil, zap.NewNop())
	b := NewEngine(fastConfig(), nil, zap.NewNop())
	assert.Equal(t, a.deck.Remaining(), b.deck.Remaining())
}

func TestEngineGeneratorsOnlyForBots(t *testing.T) {
	cfg := fastConfig()
	cfg.Players = []config.PlayerConfig{
		{Name: "alice", Human: true},
		{Name: "bot-1"},
	}
	e := NewEngine(cfg, nil, zap.NewNop())
	assert.Len(t, e.generators, 1)
}

func TestEngineShutsDownCleanly(t *testing.T) {
	e := NewEngine(fastConfig(), nil, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 600*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	var winners []int
	var err error
	go func() {
		winners, err = e.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not shut down after context cancellation")
	}

	if err != nil {
		// Aborted mid-game by the deadline.
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Nil(t, winners)
	} else {
		// The bots actually exhausted the game within the window.
		assert.NotEmpty(t, winners)
	}

	// Whatever happened, every card is still accounted for.
	assertCardConservation(t, e.dealer)
	for _, p := range e.Players() {
		assert.LessOrEqual(t, len(p.tokens), 3)
	}
}

func TestEngineEventFeed(t *testing.T) {
	feed := NewFeedDisplay(1024)
	e := NewEngine(fastConfig(), feed, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, _ = e.Run(ctx)

	// Dealing the opening board must have produced events.
	var placed int
	for {
		select {
		case ev := <-feed.Events():
			if ev.Type == EventPlaceCard {
				placed++
			}
			continue
		default:
		}
		break
	}
	assert.GreaterOrEqual(t, placed, 12)
}
