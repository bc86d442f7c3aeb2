package game

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/setfolk/set-table-go/internal/game/cards"
)

// PlayerState is the lifecycle state of a player between presses.
type PlayerState int32

const (
	StateIdle PlayerState = iota
	StateClaimPending
	StatePointFreeze
	StatePenaltyFreeze
)

var playerStateNames = map[PlayerState]string{
	StateIdle:          "IDLE",
	StateClaimPending:  "CLAIM_PENDING",
	StatePointFreeze:   "POINT_FREEZE",
	StatePenaltyFreeze: "PENALTY_FREEZE",
}

func (s PlayerState) String() string {
	if name, ok := playerStateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Verdict is the dealer's ruling on a submitted claim.
type Verdict int

const (
	// VerdictVoid means the claim was wiped by a reshuffle before it could
	// be judged; the player resumes without a freeze.
	VerdictVoid Verdict = iota
	VerdictPenalty
	VerdictPoint
)

var verdictNames = map[Verdict]string{
	VerdictVoid:    "VOID",
	VerdictPenalty: "PENALTY",
	VerdictPoint:   "POINT",
}

func (v Verdict) String() string {
	if name, ok := verdictNames[v]; ok {
		return name
	}
	return "UNKNOWN"
}

// Player is one participant. Its goroutine consumes slot presses from a
// bounded queue, places and removes tokens on the table, submits a claim
// when the third token lands, and sits out the freeze that follows the
// verdict.
type Player struct {
	id    int
	name  string
	human bool

	table   *Table
	dealer  *Dealer
	display Display
	log     *zap.Logger

	pointFreeze   time.Duration
	penaltyFreeze time.Duration

	presses  chan int
	verdicts chan Verdict

	state atomic.Int32

	// tokens and score are guarded by the dealer's arbitration lock; score
	// is additionally safe to read after the game goroutines have joined.
	tokens []int
	score  int
}

// NewPlayer creates a player. The dealer is attached later, once it exists.
func NewPlayer(id int, name string, human bool, table *Table, display Display, pointFreeze, penaltyFreeze time.Duration, log *zap.Logger) *Player {
	return &Player{
		id:            id,
		name:          name,
		human:         human,
		table:         table,
		display:       display,
		log:           log.With(zap.Int("player", id), zap.String("name", name)),
		pointFreeze:   pointFreeze,
		penaltyFreeze: penaltyFreeze,
		presses:       make(chan int, cards.SetSize),
		verdicts:      make(chan Verdict, 1),
	}
}

func (p *Player) attach(d *Dealer) { p.dealer = d }

// ID returns the player's id.
func (p *Player) ID() int { return p.id }

// Name returns the player's display name.
func (p *Player) Name() string { return p.name }

// Human reports whether the player is driven by external input rather than
// a synthetic generator.
func (p *Player) Human() bool { return p.human }

// State returns the player's current lifecycle state.
func (p *Player) State() PlayerState { return PlayerState(p.state.Load()) }

// Score returns the player's score. Only meaningful on the dealer goroutine
// or once the game has finished.
func (p *Player) Score() int { return p.score }

// SubmitKey feeds one press from an external input source. Presses are
// dropped, never queued up, while the player is frozen or awaiting a
// verdict, while the dealer is mutating the board, or when the bounded
// queue is full. The return value reports whether the press was accepted.
func (p *Player) SubmitKey(slot int) bool {
	if slot < 0 || slot >= p.table.Size() {
		return false
	}
	if p.State() != StateIdle {
		return false
	}
	if p.dealer.Mutating() || p.dealer.Finished() {
		return false
	}
	select {
	case p.presses <- slot:
		return true
	default:
		return false
	}
}

// Press feeds one press from the synthetic generator, blocking while the
// queue is full so a fast generator backs off instead of dropping.
func (p *Player) Press(ctx context.Context, slot int) error {
	select {
	case p.presses <- slot:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run is the player's main loop. It exits when ctx is cancelled.
func (p *Player) Run(ctx context.Context) {
	p.log.Info("player starting")
	defer p.log.Info("player terminated")

	for {
		select {
		case <-ctx.Done():
			return
		case slot := <-p.presses:
			p.handlePress(ctx, slot)
		}
	}
}

// handlePress performs the atomic press sequence under the arbitration
// lock: toggle off an existing token, or place a new one and, on the third,
// enqueue a claim. After enqueueing the player suspends until the dealer
// posts a verdict for that claim.
func (p *Player) handlePress(ctx context.Context, slot int) {
	d := p.dealer
	d.mu.Lock()
	if d.Finished() || d.Mutating() {
		d.mu.Unlock()
		return
	}
	if p.removeTokenLocked(slot) {
		// Pressing a slot the player already marked cancels that token.
		d.mu.Unlock()
		return
	}
	if _, ok := p.table.CardAt(slot); !ok {
		d.mu.Unlock()
		return
	}
	if len(p.tokens) >= cards.SetSize {
		d.mu.Unlock()
		return
	}
	p.tokens = append(p.tokens, slot)
	p.table.PlaceToken(p.id, slot)
	if len(p.tokens) < cards.SetSize {
		d.mu.Unlock()
		return
	}

	var claimed [cards.SetSize]int
	copy(claimed[:], p.tokens)
	p.state.Store(int32(StateClaimPending))
	d.enqueueLocked(claim{player: p, slots: claimed})
	d.mu.Unlock()

	p.log.Debug("claim submitted", zap.Ints("slots", claimed[:]))

	select {
	case <-ctx.Done():
		return
	case v := <-p.verdicts:
		p.applyVerdict(ctx, v)
	}
}

// applyVerdict runs the freeze matching the verdict and returns the player
// to IDLE. The dealer has already cleared the token set and, on a point,
// bumped the score.
func (p *Player) applyVerdict(ctx context.Context, v Verdict) {
	p.log.Debug("verdict received", zap.Stringer("verdict", v))
	switch v {
	case VerdictPoint:
		p.freeze(ctx, StatePointFreeze, p.pointFreeze)
	case VerdictPenalty:
		p.freeze(ctx, StatePenaltyFreeze, p.penaltyFreeze)
	default:
		p.state.Store(int32(StateIdle))
	}
}

// freeze rejects input for the given duration, publishing the remaining
// time once per second, then drains stale presses and goes back to IDLE.
func (p *Player) freeze(ctx context.Context, st PlayerState, total time.Duration) {
	p.state.Store(int32(st))
	for remaining := total; remaining > 0; remaining -= time.Second {
		p.display.SetFreeze(p.id, remaining)
		step := time.Second
		if remaining < step {
			step = remaining
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(step):
		}
	}
	p.display.SetFreeze(p.id, 0)
	p.drainPresses()
	p.state.Store(int32(StateIdle))
}

func (p *Player) drainPresses() {
	for {
		select {
		case <-p.presses:
		default:
			return
		}
	}
}

// removeTokenLocked retracts the player's token from slot. Caller holds the
// arbitration lock. Removing an absent token reports false.
func (p *Player) removeTokenLocked(slot int) bool {
	for i, s := range p.tokens {
		if s == slot {
			p.tokens = append(p.tokens[:i], p.tokens[i+1:]...)
			p.table.RemoveToken(p.id, slot)
			return true
		}
	}
	return false
}

// forgetTokenLocked drops slot from the player's token set without touching
// the table; used when the table itself already cleared the slot. Caller
// holds the arbitration lock.
func (p *Player) forgetTokenLocked(slot int) {
	for i, s := range p.tokens {
		if s == slot {
			p.tokens = append(p.tokens[:i], p.tokens[i+1:]...)
			return
		}
	}
}

// clearTokensLocked retracts all of the player's tokens. Caller holds the
// arbitration lock.
func (p *Player) clearTokensLocked() {
	for _, slot := range p.tokens {
		p.table.RemoveToken(p.id, slot)
	}
	p.tokens = p.tokens[:0]
}

// awardPointLocked bumps the score and publishes it. Caller holds the
// arbitration lock.
func (p *Player) awardPointLocked() {
	p.score++
	p.display.SetScore(p.id, p.score)
}
