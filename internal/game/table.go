package game

import (
	"github.com/setfolk/set-table-go/internal/game/cards"
)

// Table is the shared board: a fixed grid of slots, each holding at most
// one card, plus a per-player token flag on every slot.
//
// Table holds no locking of its own. The dealer owns it, and every mutating
// call must happen under the dealer's arbitration lock; keeping the
// bookkeeping free of synchronization keeps it auditable.
type Table struct {
	slotToCard []int // card id per slot, -1 when empty
	cardToSlot []int // slot per card id, -1 when off the table
	tokens     [][]bool

	display Display
}

// NewTable creates an empty table with the given slot count for the given
// number of players.
func NewTable(slots, players int, display Display) *Table {
	t := &Table{
		slotToCard: make([]int, slots),
		cardToSlot: make([]int, cards.DeckSize),
		tokens:     make([][]bool, players),
		display:    display,
	}
	for i := range t.slotToCard {
		t.slotToCard[i] = -1
	}
	for i := range t.cardToSlot {
		t.cardToSlot[i] = -1
	}
	for i := range t.tokens {
		t.tokens[i] = make([]bool, slots)
	}
	return t
}

// Size returns the number of slots.
func (t *Table) Size() int { return len(t.slotToCard) }

// CardAt returns the card occupying the slot, if any.
func (t *Table) CardAt(slot int) (cards.Card, bool) {
	if slot < 0 || slot >= len(t.slotToCard) || t.slotToCard[slot] < 0 {
		return 0, false
	}
	return cards.Card(t.slotToCard[slot]), true
}

// SlotOf returns the slot currently holding the card, if any.
func (t *Table) SlotOf(card cards.Card) (int, bool) {
	if card < 0 || int(card) >= len(t.cardToSlot) || t.cardToSlot[card] < 0 {
		return 0, false
	}
	return t.cardToSlot[card], true
}

// PlaceCard puts a card on an empty slot. Returns false without touching
// anything if the slot is occupied or out of range.
func (t *Table) PlaceCard(card cards.Card, slot int) bool {
	if slot < 0 || slot >= len(t.slotToCard) || t.slotToCard[slot] >= 0 {
		return false
	}
	t.slotToCard[slot] = int(card)
	t.cardToSlot[card] = slot
	t.display.PlaceCard(card, slot)
	return true
}

// RemoveCard clears the slot and, because a token may only exist on an
// occupied slot, retracts every player's token there. Returns the removed
// card, or false if the slot was already empty.
func (t *Table) RemoveCard(slot int) (cards.Card, bool) {
	if slot < 0 || slot >= len(t.slotToCard) || t.slotToCard[slot] < 0 {
		return 0, false
	}
	for player := range t.tokens {
		t.RemoveToken(player, slot)
	}
	card := cards.Card(t.slotToCard[slot])
	t.slotToCard[slot] = -1
	t.cardToSlot[card] = -1
	t.display.RemoveCard(slot)
	return card, true
}

// PlaceToken marks the player's token on the slot. Returns false if the
// slot holds no card or the token is already present.
func (t *Table) PlaceToken(player, slot int) bool {
	if slot < 0 || slot >= len(t.slotToCard) || t.slotToCard[slot] < 0 {
		return false
	}
	if t.tokens[player][slot] {
		return false
	}
	t.tokens[player][slot] = true
	t.display.PlaceToken(player, slot)
	return true
}

// RemoveToken retracts the player's token from the slot. Removing an absent
// token is a no-op reported with false.
func (t *Table) RemoveToken(player, slot int) bool {
	if slot < 0 || slot >= len(t.slotToCard) || !t.tokens[player][slot] {
		return false
	}
	t.tokens[player][slot] = false
	t.display.RemoveToken(player, slot)
	return true
}

// HasToken reports whether the player currently holds a token on the slot.
func (t *Table) HasToken(player, slot int) bool {
	if slot < 0 || slot >= len(t.slotToCard) {
		return false
	}
	return t.tokens[player][slot]
}

// CountCards returns the number of occupied slots.
func (t *Table) CountCards() int {
	n := 0
	for _, c := range t.slotToCard {
		if c >= 0 {
			n++
		}
	}
	return n
}

// Cards returns the cards currently on the table, in slot order.
func (t *Table) Cards() []cards.Card {
	out := make([]cards.Card, 0, len(t.slotToCard))
	for _, c := range t.slotToCard {
		if c >= 0 {
			out = append(out, cards.Card(c))
		}
	}
	return out
}

// EmptySlots returns the indices of all unoccupied slots, in slot order.
func (t *Table) EmptySlots() []int {
	var out []int
	for slot, c := range t.slotToCard {
		if c < 0 {
			out = append(out, slot)
		}
	}
	return out
}

// TokenCount returns how many slots currently carry the player's token.
func (t *Table) TokenCount(player int) int {
	n := 0
	for _, present := range t.tokens[player] {
		if present {
			n++
		}
	}
	return n
}
