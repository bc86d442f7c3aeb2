// Package cards implements card feature decoding and set legality for the
// Set deck: 81 cards carrying 4 independent features, each drawn from 3
// possible values. Everything here is pure and safe for concurrent use.
package cards

// FeatureCount is the number of independent features on a card.
const FeatureCount = 4

// FeatureValues is the number of values each feature can take.
const FeatureValues = 3

// SetSize is the number of cards that form a set.
const SetSize = 3

// DeckSize is the total number of distinct cards (3^4).
const DeckSize = 81

// Card identifies a single card by its integer id in [0, DeckSize).
// The id encodes the card's features in mixed radix, base FeatureValues.
type Card int

// Features decodes the card id into its feature values, least significant
// feature first. Each value is in [0, FeatureValues).
func (c Card) Features() [FeatureCount]int {
	var f [FeatureCount]int
	id := int(c)
	for i := 0; i < FeatureCount; i++ {
		f[i] = id % FeatureValues
		id /= FeatureValues
	}
	return f
}

// LegalSet reports whether the three cards form a legal set: for every
// feature the three values are either all equal or pairwise distinct.
// Since values live in Z/3, a feature passes iff its values sum to 0 mod 3;
// exactly two equal values are the only sums that fail.
func LegalSet(a, b, c Card) bool {
	fa, fb, fc := a.Features(), b.Features(), c.Features()
	for i := 0; i < FeatureCount; i++ {
		if (fa[i]+fb[i]+fc[i])%FeatureValues != 0 {
			return false
		}
	}
	return true
}

// AnySetIn reports whether some unordered triple of the given cards forms a
// legal set. The result does not depend on the order of the input. Fewer
// than three cards never contain a set.
func AnySetIn(cs []Card) bool {
	return len(FindSets(cs, 1)) > 0
}

// FindSets enumerates up to max legal sets among the given cards, in a
// deterministic order. max <= 0 means no limit.
func FindSets(cs []Card, max int) [][SetSize]Card {
	var found [][SetSize]Card
	for i := 0; i < len(cs); i++ {
		for j := i + 1; j < len(cs); j++ {
			for k := j + 1; k < len(cs); k++ {
				if !LegalSet(cs[i], cs[j], cs[k]) {
					continue
				}
				found = append(found, [SetSize]Card{cs[i], cs[j], cs[k]})
				if max > 0 && len(found) >= max {
					return found
				}
			}
		}
	}
	return found
}
