package poker

import (
	rand "math/rand/v2"
)

// Deck is a standard 52-card deck dealt from the top without replacement.
type Deck struct {
	cards [52]Card
	next  int
	rng   *rand.Rand
}

// NewDeck creates a new deck shuffled with rng. A nil rng falls back to the
// package level generator.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{rng: rng}
	d.fill()
	d.Shuffle()
	return d
}

// NewOrderedDeck returns an unshuffled deck whose first cards are top, in
// order, followed by every remaining card in canonical order. It panics if top
// contains an invalid or repeated card.
func NewOrderedDeck(top ...Card) *Deck {
	d := &Deck{}
	var seen Hand
	i := 0
	for _, c := range top {
		if !c.IsValid() || seen.HasCard(c) {
			panic("poker: invalid or duplicate card in ordered deck: " + c.String())
		}
		seen.AddCard(c)
		d.cards[i] = c
		i++
	}
	for suit := range uint8(4) {
		for rank := range uint8(13) {
			c := NewCard(rank, suit)
			if seen.HasCard(c) {
				continue
			}
			d.cards[i] = c
			i++
		}
	}
	return d
}

func (d *Deck) fill() {
	i := 0
	for suit := range uint8(4) {
		for rank := range uint8(13) {
			d.cards[i] = NewCard(rank, suit)
			i++
		}
	}
}

// Shuffle shuffles the whole deck using Fisher-Yates and rewinds it.
func (d *Deck) Shuffle() {
	d.next = 0
	for i := len(d.cards) - 1; i > 0; i-- {
		var j int
		if d.rng != nil {
			j = d.rng.IntN(i + 1)
		} else {
			j = rand.IntN(i + 1)
		}
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Deal removes n cards from the top of the deck. It returns nil if fewer than
// n cards remain.
func (d *Deck) Deal(n int) []Card {
	if n < 0 || d.next+n > len(d.cards) {
		return nil
	}
	cards := make([]Card, n)
	copy(cards, d.cards[d.next:d.next+n])
	d.next += n
	return cards
}

// DealOne removes the top card. It returns the zero Card once the deck is
// exhausted.
func (d *Deck) DealOne() Card {
	if d.next >= len(d.cards) {
		return 0
	}
	card := d.cards[d.next]
	d.next++
	return card
}

// CardsRemaining returns the number of cards left in the deck.
func (d *Deck) CardsRemaining() int {
	return len(d.cards) - d.next
}
