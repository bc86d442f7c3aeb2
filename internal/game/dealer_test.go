package game

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/setfolk/set-table-go/internal/game/cards"
)

// newArbiter builds a dealer with players that never freeze, so verdict
// handling in tests is instantaneous.
func newArbiter(t *testing.T, numPlayers int, turnTimeout time.Duration) (*Dealer, *Table, *Deck, []*Player) {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	display := NopDisplay{}
	table := NewTable(12, numPlayers, display)
	deck := NewDeck(rng)
	players := make([]*Player, numPlayers)
	for i := range players {
		players[i] = NewPlayer(i, fmt.Sprintf("player-%d", i), false, table, display, 0, 0, zap.NewNop())
	}
	d := NewDealer(table, deck, players, display, rng, turnTimeout, 10*time.Second, 5*time.Millisecond, zap.NewNop())
	return d, table, deck, players
}

// drainDeck empties the deck so tests can stage the board by hand.
func drainDeck(deck *Deck) {
	for {
		if _, ok := deck.Draw(); !ok {
			return
		}
	}
}

func assertCardConservation(t *testing.T, d *Dealer) {
	t.Helper()
	pool := append(d.deck.Remaining(), d.table.Cards()...)
	pool = append(pool, d.discarded...)
	require.Len(t, pool, cards.DeckSize)
	seen := make(map[cards.Card]bool, len(pool))
	for _, c := range pool {
		require.False(t, seen[c], "card %d appears twice", c)
		seen[c] = true
	}
}

func TestResolveLegalClaimAwardsPoint(t *testing.T) {
	d, table, deck, players := newArbiter(t, 1, time.Minute)
	drainDeck(deck)

	require.True(t, table.PlaceCard(0, 0))
	require.True(t, table.PlaceCard(40, 1))
	require.True(t, table.PlaceCard(80, 2))

	d.enqueueLocked(claim{player: players[0], slots: [cards.SetSize]int{0, 1, 2}})
	d.resolveClaims(<-d.claims)

	assert.Equal(t, VerdictPoint, <-players[0].verdicts)
	assert.Equal(t, 1, players[0].Score())
	assert.Equal(t, 0, table.CountCards())
	assert.Len(t, d.discarded, 3)
}

func TestResolveIllegalClaimPenalizes(t *testing.T) {
	d, table, deck, players := newArbiter(t, 1, time.Minute)
	drainDeck(deck)

	require.True(t, table.PlaceCard(0, 0))
	require.True(t, table.PlaceCard(40, 1))
	require.True(t, table.PlaceCard(79, 2))

	d.enqueueLocked(claim{player: players[0], slots: [cards.SetSize]int{0, 1, 2}})
	d.resolveClaims(<-d.claims)

	assert.Equal(t, VerdictPenalty, <-players[0].verdicts)
	assert.Equal(t, 0, players[0].Score())
	// An illegal claim leaves the board untouched.
	assert.Equal(t, 3, table.CountCards())
}

func TestRaceInvalidatedClaimResolvesAsPenalty(t *testing.T) {
	d, table, deck, players := newArbiter(t, 2, time.Minute)
	drainDeck(deck)

	// A legal set on slots 0-2 and fillers on 3-4. The second claim shares
	// slot 2 with the first.
	require.True(t, table.PlaceCard(0, 0))
	require.True(t, table.PlaceCard(1, 1))
	require.True(t, table.PlaceCard(2, 2))
	require.True(t, table.PlaceCard(40, 3))
	require.True(t, table.PlaceCard(80, 4))

	d.enqueueLocked(claim{player: players[0], slots: [cards.SetSize]int{0, 1, 2}})
	d.enqueueLocked(claim{player: players[1], slots: [cards.SetSize]int{2, 3, 4}})
	d.resolveClaims(<-d.claims)

	assert.Equal(t, VerdictPoint, <-players[0].verdicts)
	// Slot 2 lost its card to the first claim: penalty, not a crash and
	// not a silent drop.
	assert.Equal(t, VerdictPenalty, <-players[1].verdicts)
	assert.Equal(t, 0, players[1].Score())
}

func TestResolvedSetRetractsEveryPlayersTokens(t *testing.T) {
	d, table, deck, players := newArbiter(t, 2, time.Minute)
	drainDeck(deck)

	require.True(t, table.PlaceCard(0, 0))
	require.True(t, table.PlaceCard(40, 1))
	require.True(t, table.PlaceCard(80, 2))

	// The losing player has tokens on two of the claimed slots.
	other := players[1]
	other.tokens = append(other.tokens, 1, 2)
	require.True(t, table.PlaceToken(other.id, 1))
	require.True(t, table.PlaceToken(other.id, 2))

	d.enqueueLocked(claim{player: players[0], slots: [cards.SetSize]int{0, 1, 2}})
	d.resolveClaims(<-d.claims)

	assert.Equal(t, VerdictPoint, <-players[0].verdicts)
	assert.Empty(t, other.tokens)
	assert.Equal(t, 0, table.TokenCount(other.id))
}

func TestTerminatesWhenLastSetResolvedAndDeckEmpty(t *testing.T) {
	d, table, deck, players := newArbiter(t, 2, time.Minute)
	drainDeck(deck)

	require.True(t, table.PlaceCard(0, 0))
	require.True(t, table.PlaceCard(40, 1))
	require.True(t, table.PlaceCard(80, 2))

	d.enqueueLocked(claim{player: players[0], slots: [cards.SetSize]int{0, 1, 2}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("dealer did not terminate after the final set resolved")
	}

	require.True(t, d.Finished())
	assert.Equal(t, []int{0}, d.Winners())
	assert.Equal(t, 1, players[0].Score())
	// Terminated immediately: no redeal happened.
	assert.Equal(t, 0, table.CountCards())
}

func TestTerminatesImmediatelyWhenNoSetAnywhere(t *testing.T) {
	d, _, deck, _ := newArbiter(t, 2, time.Minute)
	drainDeck(deck)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("dealer did not terminate on an exhausted game")
	}

	require.True(t, d.Finished())
	// Everyone is tied at zero.
	assert.Equal(t, []int{0, 1}, d.Winners())
}

func TestTurnTimeoutReshufflesAndConservesCards(t *testing.T) {
	d, table, _, _ := newArbiter(t, 2, 60*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	// Let a couple of timeouts elapse with no activity.
	time.Sleep(200 * time.Millisecond)
	cancel()
	<-done

	assertCardConservation(t, d)
	assert.False(t, d.Finished())
	// Depending on where the cancel landed the board is either freshly
	// dealt or mid-clear; both preserve the card partition.
	count := table.CountCards()
	assert.True(t, count == 12 || count == 0, "unexpected board count %d", count)
}

func TestClearBoardVoidsPendingClaims(t *testing.T) {
	d, table, _, players := newArbiter(t, 2, time.Minute)

	d.mu.Lock()
	d.dealLocked()
	d.mu.Unlock()

	p := players[0]
	p.tokens = append(p.tokens, 0, 1, 2)
	for _, slot := range p.tokens {
		require.True(t, table.PlaceToken(p.id, slot))
	}
	d.enqueueLocked(claim{player: p, slots: [cards.SetSize]int{0, 1, 2}})

	d.mu.Lock()
	d.clearBoardLocked()
	d.mu.Unlock()

	assert.Equal(t, VerdictVoid, <-p.verdicts)
	assert.Empty(t, p.tokens)
	assert.Equal(t, 0, table.CountCards())
	assertCardConservation(t, d)
}

func TestEnsureSetAvailableRedeals(t *testing.T) {
	d, table, deck, _ := newArbiter(t, 2, time.Minute)

	// An empty board has no set; the deck is full, so the dealer must
	// redeal rather than terminate.
	over := d.ensureSetAvailable()

	assert.False(t, over)
	assert.Equal(t, 12, table.CountCards())
	assert.Equal(t, cards.DeckSize-12, deck.Len())
	assert.True(t, cards.AnySetIn(table.Cards()))
	assertCardConservation(t, d)
}

func TestClaimsResolveInArrivalOrder(t *testing.T) {
	d, table, deck, players := newArbiter(t, 2, time.Minute)
	drainDeck(deck)

	// Both players claim the same legal set; only the first submitter may
	// score, the later one pays for the race.
	require.True(t, table.PlaceCard(0, 0))
	require.True(t, table.PlaceCard(40, 1))
	require.True(t, table.PlaceCard(80, 2))

	d.enqueueLocked(claim{player: players[1], slots: [cards.SetSize]int{0, 1, 2}})
	d.enqueueLocked(claim{player: players[0], slots: [cards.SetSize]int{0, 1, 2}})
	d.resolveClaims(<-d.claims)

	assert.Equal(t, VerdictPoint, <-players[1].verdicts)
	assert.Equal(t, VerdictPenalty, <-players[0].verdicts)
}
