// Package bot drives non-human players with synthetic input.
package bot

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Target is the press queue the generator feeds. A full queue blocks the
// press, which is how backpressure reaches the generator.
type Target interface {
	Press(ctx context.Context, slot int) error
}

// Generator produces uniformly random slot presses for one player. It owns
// nothing but its RNG and never touches shared board state.
type Generator struct {
	target Target
	slots  int
	delay  time.Duration
	rng    *rand.Rand
	log    *zap.Logger
}

// New creates a generator pressing slots in [0, slots) with an optional
// pause between presses. Each generator gets its own seed so it can run on
// its own goroutine.
func New(target Target, slots int, delay time.Duration, seed int64, log *zap.Logger) *Generator {
	return &Generator{
		target: target,
		slots:  slots,
		delay:  delay,
		rng:    rand.New(rand.NewSource(seed)),
		log:    log,
	}
}

// Run generates presses until ctx is cancelled.
func (g *Generator) Run(ctx context.Context) {
	g.log.Info("generator starting")
	defer g.log.Info("generator terminated")

	for ctx.Err() == nil {
		slot := g.rng.Intn(g.slots)
		if err := g.target.Press(ctx, slot); err != nil {
			return
		}
		if g.delay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(g.delay):
			}
		}
	}
}
