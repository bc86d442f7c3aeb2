package game

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/setfolk/set-table-go/internal/game/cards"
)

// claim is a player's proposed set: the three slots the player's tokens
// were on at submission time. Slots are re-resolved to cards at judgement.
type claim struct {
	player *Player
	slots  [cards.SetSize]int
}

// Dealer is the sole mutator of the table and the deck. It runs the round
// state machine: deal, arbitrate claims until the turn timeout, reshuffle,
// and detect the end of the game.
//
// The arbitration lock mu serializes every board mutation with the players'
// press handling; the claim channel both queues claims FIFO and wakes the
// dealer out of its tick sleep.
type Dealer struct {
	table   *Table
	deck    *Deck
	players []*Player
	display Display
	log     *zap.Logger
	rng     *rand.Rand

	turnTimeout   time.Duration
	warnThreshold time.Duration
	tick          time.Duration

	mu     sync.Mutex
	claims chan claim

	mutating atomic.Bool
	finished atomic.Bool

	reshuffleAt time.Time
	discarded   []cards.Card
	winners     []int

	cancel context.CancelFunc
}

// NewDealer wires the dealer to its table, deck and players, and attaches
// itself to each player.
func NewDealer(table *Table, deck *Deck, players []*Player, display Display, rng *rand.Rand, turnTimeout, warnThreshold, tick time.Duration, log *zap.Logger) *Dealer {
	d := &Dealer{
		table:         table,
		deck:          deck,
		players:       players,
		display:       display,
		log:           log,
		rng:           rng,
		turnTimeout:   turnTimeout,
		warnThreshold: warnThreshold,
		tick:          tick,
		claims:        make(chan claim, len(players)),
	}
	for _, p := range players {
		p.attach(d)
	}
	return d
}

// Mutating reports whether the dealer is mid-mutation; presses arriving now
// are dropped at the input edge.
func (d *Dealer) Mutating() bool { return d.mutating.Load() }

// Finished reports whether the game has ended.
func (d *Dealer) Finished() bool { return d.finished.Load() }

// Winners returns the ids of the players tied at the maximum score. Empty
// until the game finishes.
func (d *Dealer) Winners() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]int, len(d.winners))
	copy(out, d.winners)
	return out
}

// setCancel hands the dealer the function that stops every game goroutine
// once termination is detected.
func (d *Dealer) setCancel(cancel context.CancelFunc) { d.cancel = cancel }

// Run is the dealer's main loop. It exits when the game terminates or ctx
// is cancelled.
func (d *Dealer) Run(ctx context.Context) {
	d.log.Info("dealer starting")
	defer d.log.Info("dealer terminated")

	for ctx.Err() == nil {
		d.mu.Lock()
		if d.noSetAnywhereLocked() {
			d.mu.Unlock()
			d.finish()
			return
		}
		d.dealLocked()
		d.mu.Unlock()

		if done := d.roundLoop(ctx); done {
			return
		}

		// Turn timed out: return the board to the deck and start over.
		d.mu.Lock()
		d.clearBoardLocked()
		d.mu.Unlock()
		d.log.Info("turn timeout, reshuffling", zap.Int("deck", d.deck.Len()))
	}
}

// roundLoop waits for the first of claim arrival or tick expiry, judges all
// queued claims FIFO, and keeps the countdown display fresh. It returns
// true when the game is over (or ctx cancelled), false on turn timeout.
func (d *Dealer) roundLoop(ctx context.Context) bool {
	for {
		d.updateCountdown()
		remaining := time.Until(d.reshuffleAt)
		if remaining <= 0 {
			return false
		}
		wait := d.tick
		if remaining < wait {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return true
		case cl := <-d.claims:
			timer.Stop()
			d.resolveClaims(cl)
		case <-timer.C:
		}
		if over := d.ensureSetAvailable(); over {
			return true
		}
	}
}

// resolveClaims judges the given claim and then every claim already queued
// behind it, in arrival order.
func (d *Dealer) resolveClaims(first claim) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resolveLocked(first)
	for {
		select {
		case cl := <-d.claims:
			d.resolveLocked(cl)
		default:
			return
		}
	}
}

// resolveLocked judges one claim against the current board. A claim whose
// slot lost its card to an earlier claim in the same drain is a penalty:
// the race costs its submitter rather than vanishing silently.
func (d *Dealer) resolveLocked(cl claim) {
	p := cl.player

	var picked [cards.SetSize]cards.Card
	valid := true
	for i, slot := range cl.slots {
		c, ok := d.table.CardAt(slot)
		if !ok {
			valid = false
			break
		}
		picked[i] = c
	}

	switch {
	case !valid:
		p.clearTokensLocked()
		d.deliverLocked(p, VerdictPenalty)
		d.log.Info("claim invalidated by earlier removal",
			zap.Int("player", p.id), zap.Ints("slots", cl.slots[:]))
	case cards.LegalSet(picked[0], picked[1], picked[2]):
		d.mutating.Store(true)
		for _, slot := range cl.slots {
			card, ok := d.table.RemoveCard(slot)
			if !ok {
				continue
			}
			d.discarded = append(d.discarded, card)
			for _, other := range d.players {
				other.forgetTokenLocked(slot)
			}
		}
		d.replenishLocked(cl.slots[:])
		d.mutating.Store(false)
		d.resetCountdownLocked()
		p.awardPointLocked()
		d.deliverLocked(p, VerdictPoint)
		d.log.Info("set claimed", zap.Int("player", p.id),
			zap.Int("score", p.score), zap.Int("deck", d.deck.Len()))
	default:
		p.clearTokensLocked()
		d.deliverLocked(p, VerdictPenalty)
		d.log.Info("illegal set claimed", zap.Int("player", p.id))
	}
}

// deliverLocked posts the verdict that wakes the submitting player. The
// verdict channel holds one entry and a player has at most one claim in
// flight, so the send cannot block.
func (d *Dealer) deliverLocked(p *Player, v Verdict) {
	select {
	case p.verdicts <- v:
	default:
	}
}

// enqueueLocked queues a claim and wakes the dealer. Capacity is one claim
// per player, so the send cannot block while the invariant of at most one
// outstanding claim per player holds.
func (d *Dealer) enqueueLocked(cl claim) {
	select {
	case d.claims <- cl:
	default:
	}
}

// replenishLocked refills the freed slots from the deck, visiting them in
// random order.
func (d *Dealer) replenishLocked(slots []int) {
	order := make([]int, len(slots))
	copy(order, slots)
	d.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	for _, slot := range order {
		card, ok := d.deck.Draw()
		if !ok {
			return
		}
		d.table.PlaceCard(card, slot)
	}
}

// ensureSetAvailable reshuffles until the board holds a legal set, or ends
// the game when the deck cannot provide one. Returns true when the game is
// over.
func (d *Dealer) ensureSetAvailable() bool {
	d.mu.Lock()
	for !cards.AnySetIn(d.table.Cards()) {
		if d.deck.Empty() {
			d.mu.Unlock()
			d.finish()
			return true
		}
		d.clearBoardLocked()
		d.dealLocked()
		d.log.Info("no set on board, dynamic reshuffle", zap.Int("deck", d.deck.Len()))
	}
	d.mu.Unlock()
	return false
}

// dealLocked fills every empty slot from the deck, visiting slots in
// random order, and restarts the turn countdown.
func (d *Dealer) dealLocked() {
	d.mutating.Store(true)
	slots := d.table.EmptySlots()
	d.rng.Shuffle(len(slots), func(i, j int) { slots[i], slots[j] = slots[j], slots[i] })
	for _, slot := range slots {
		card, ok := d.deck.Draw()
		if !ok {
			break
		}
		d.table.PlaceCard(card, slot)
	}
	d.mutating.Store(false)
	d.resetCountdownLocked()
}

// clearBoardLocked retracts all tokens, returns every card to the deck in
// random slot order, reshuffles, and voids pending claims.
func (d *Dealer) clearBoardLocked() {
	d.mutating.Store(true)
	for _, p := range d.players {
		p.clearTokensLocked()
	}
	order := d.rng.Perm(d.table.Size())
	for _, slot := range order {
		if card, ok := d.table.RemoveCard(slot); ok {
			d.deck.Return(card)
		}
	}
	d.deck.Shuffle()
	d.voidClaimsLocked()
	d.mutating.Store(false)
}

// voidClaimsLocked drains the claim queue and wakes each claimant without
// a freeze; the board those claims referenced no longer exists.
func (d *Dealer) voidClaimsLocked() {
	for {
		select {
		case cl := <-d.claims:
			d.deliverLocked(cl.player, VerdictVoid)
		default:
			return
		}
	}
}

// resetCountdownLocked restarts the turn timer.
func (d *Dealer) resetCountdownLocked() {
	d.reshuffleAt = time.Now().Add(d.turnTimeout)
	d.display.SetCountdown(d.turnTimeout, d.turnTimeout <= d.warnThreshold)
}

// updateCountdown publishes the remaining turn time, flipping the warning
// flag once under the threshold.
func (d *Dealer) updateCountdown() {
	remaining := time.Until(d.reshuffleAt)
	if remaining < 0 {
		remaining = 0
	}
	d.display.SetCountdown(remaining, remaining <= d.warnThreshold)
}

// noSetAnywhereLocked reports whether no legal set exists in the deck and
// board combined; once true the game can never produce another set.
func (d *Dealer) noSetAnywhereLocked() bool {
	pool := append(d.table.Cards(), d.deck.Remaining()...)
	return !cards.AnySetIn(pool)
}

// finish ends the game: no more claims or tokens are accepted, the winners
// are published, and every goroutine is released to its exit checkpoint.
func (d *Dealer) finish() {
	d.mu.Lock()
	d.finished.Store(true)
	d.voidClaimsLocked()

	maxScore := 0
	for _, p := range d.players {
		if p.score > maxScore {
			maxScore = p.score
		}
	}
	winners := make([]int, 0, len(d.players))
	for _, p := range d.players {
		if p.score == maxScore {
			winners = append(winners, p.id)
		}
	}
	d.winners = winners
	d.mu.Unlock()

	d.display.AnnounceWinners(winners)
	d.log.Info("game over", zap.Ints("winners", winners), zap.Int("max_score", maxScore))
	if d.cancel != nil {
		d.cancel()
	}
}
