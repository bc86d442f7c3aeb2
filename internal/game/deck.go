package game

import (
	"math/rand"

	"github.com/setfolk/set-table-go/internal/game/cards"
)

// Deck is the pool of undealt card ids. Like Table it carries no locking;
// only the dealer touches it, under the arbitration lock.
type Deck struct {
	cards []cards.Card
	rng   *rand.Rand
}

// NewDeck builds a shuffled deck of all card ids using the injected RNG.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{
		cards: make([]cards.Card, 0, cards.DeckSize),
		rng:   rng,
	}
	for id := 0; id < cards.DeckSize; id++ {
		d.cards = append(d.cards, cards.Card(id))
	}
	d.Shuffle()
	return d
}

// Draw removes and returns the top card. Returns false on an empty deck.
func (d *Deck) Draw() (cards.Card, bool) {
	if len(d.cards) == 0 {
		return 0, false
	}
	card := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return card, true
}

// Return puts a card back into the pool. The caller shuffles afterwards.
func (d *Deck) Return(card cards.Card) {
	d.cards = append(d.cards, card)
}

// Shuffle permutes the remaining cards.
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Len returns the number of undealt cards.
func (d *Deck) Len() int { return len(d.cards) }

// Empty reports whether the deck has run out.
func (d *Deck) Empty() bool { return len(d.cards) == 0 }

// Remaining returns a copy of the undealt cards.
func (d *Deck) Remaining() []cards.Card {
	out := make([]cards.Card, len(d.cards))
	copy(out, d.cards)
	return out
}
