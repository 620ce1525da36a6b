package poker

import (
	"fmt"
	"math/bits"
	"strings"
)

// Card is a single playing card stored as one bit. Each suit occupies a
// 16-bit lane with ranks Two..Ace in the low 13 bits, so a set of cards is
// simply the bitwise OR of its members (see Hand). The zero Card is invalid.
type Card uint64

// Ranks, lowest first.
const (
	Two uint8 = iota
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// Suits.
const (
	Clubs uint8 = iota
	Diamonds
	Hearts
	Spades
)

const (
	rankChars = "23456789TJQKA"
	suitChars = "cdhs"
)

// NewCard creates a card from a rank (Two..Ace) and suit (Clubs..Spades).
func NewCard(rank, suit uint8) Card {
	if rank > Ace || suit > Spades {
		return 0
	}
	return Card(1) << (uint(suit)*16 + uint(rank))
}

// Rank returns the rank of the card (Two=0 .. Ace=12).
func (c Card) Rank() uint8 {
	return uint8(bits.TrailingZeros64(uint64(c)) % 16)
}

// Suit returns the suit of the card (Clubs=0 .. Spades=3).
func (c Card) Suit() uint8 {
	return uint8(bits.TrailingZeros64(uint64(c)) / 16)
}

// IsValid reports whether c encodes exactly one of the 52 cards.
func (c Card) IsValid() bool {
	if bits.OnesCount64(uint64(c)) != 1 {
		return false
	}
	return c.Rank() <= Ace
}

// String returns the two character token for the card, e.g. "Ts" or "Ah".
func (c Card) String() string {
	if !c.IsValid() {
		return "??"
	}
	return string([]byte{rankChars[c.Rank()], suitChars[c.Suit()]})
}

// ParseCard parses a two character token like "As" or "Td".
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return 0, fmt.Errorf("invalid card %q: expected 2 characters", s)
	}
	rank := strings.IndexByte(rankChars, strings.ToUpper(s[:1])[0])
	if rank < 0 {
		return 0, fmt.Errorf("invalid card %q: unknown rank %q", s, s[0])
	}
	suit := strings.IndexByte(suitChars, strings.ToLower(s[1:])[0])
	if suit < 0 {
		return 0, fmt.Errorf("invalid card %q: unknown suit %q", s, s[1])
	}
	return NewCard(uint8(rank), uint8(suit)), nil
}

// ParseCards parses a whitespace separated list of card tokens.
func ParseCards(s string) ([]Card, error) {
	fields := strings.Fields(s)
	cards := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// MustParseCards is ParseCards for literals; it panics on malformed input.
func MustParseCards(s string) []Card {
	cards, err := ParseCards(s)
	if err != nil {
		panic(err)
	}
	return cards
}

// FormatCards joins card tokens with a single space.
func FormatCards(cards []Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

// Hand is a set of cards.
type Hand uint64

// NewHand builds a set from the given cards.
func NewHand(cards ...Card) Hand {
	var h Hand
	for _, c := range cards {
		h |= Hand(c)
	}
	return h
}

// AddCard adds a card to the set.
func (h *Hand) AddCard(c Card) {
	*h |= Hand(c)
}

// HasCard reports whether the card is in the set.
func (h Hand) HasCard(c Card) bool {
	return h&Hand(c) != 0
}

// CountCards returns the number of cards in the set.
func (h Hand) CountCards() int {
	return bits.OnesCount64(uint64(h))
}

// GetSuitMask returns the 13-bit rank mask for one suit.
func (h Hand) GetSuitMask(suit uint8) uint16 {
	return uint16(h>>(uint(suit)*16)) & 0x1FFF
}

// Cards lists the members of the set in ascending bit order.
func (h Hand) Cards() []Card {
	cards := make([]Card, 0, h.CountCards())
	for rest := uint64(h); rest != 0; rest &= rest - 1 {
		cards = append(cards, Card(rest&-rest))
	}
	return cards
}
