package poker

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidInput is returned when Evaluate is given fewer than 5 cards, more
// than 7, an invalid card or the same card twice.
var ErrInvalidInput = errors.New("poker: invalid input")

// HandType enumerates the categories of poker hands ordered from weakest to strongest.
type HandType uint8

const (
	HighCard HandType = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

func (t HandType) String() string {
	switch t {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	default:
		return "Unknown"
	}
}

// HandRank is the strength key of a five card hand. Higher values are
// stronger and two hands of equal strength always have equal keys.
//
// Layout: the hand type occupies bits 20-23, followed by up to five 4-bit
// rank slots (most significant first) holding the tie-break ranks in
// decreasing order of importance. A wheel straight records Five as its high
// card so it sorts below a six-high straight.
type HandRank uint32

const (
	typeShift = 20
	slotBits  = 4
)

// Type returns the category of the hand.
func (hr HandRank) Type() HandType {
	return HandType(hr >> typeShift)
}

// String returns a human-readable hand description.
func (hr HandRank) String() string {
	return hr.Type().String()
}

// CompareHands returns 1 if a beats b, -1 if b beats a and 0 on a tie.
func CompareHands(a, b HandRank) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

// Evaluate finds the strongest five card subset of 5 to 7 distinct cards.
// The returned five cards are sorted by descending rank.
func Evaluate(cards []Card) ([]Card, HandRank, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return nil, 0, fmt.Errorf("%w: need 5 to 7 cards, got %d", ErrInvalidInput, len(cards))
	}
	var seen Hand
	for _, c := range cards {
		if !c.IsValid() {
			return nil, 0, fmt.Errorf("%w: invalid card %#x", ErrInvalidInput, uint64(c))
		}
		if seen.HasCard(c) {
			return nil, 0, fmt.Errorf("%w: duplicate card %s", ErrInvalidInput, c)
		}
		seen.AddCard(c)
	}

	var best [5]Card
	var bestRank HandRank
	found := false
	n := len(cards)
	var five [5]Card
	for a := 0; a < n-4; a++ {
		for b := a + 1; b < n-3; b++ {
			for c := b + 1; c < n-2; c++ {
				for d := c + 1; d < n-1; d++ {
					for e := d + 1; e < n; e++ {
						five = [5]Card{cards[a], cards[b], cards[c], cards[d], cards[e]}
						rank := rankFive(five)
						if !found || rank > bestRank {
							best, bestRank, found = five, rank, true
						}
					}
				}
			}
		}
	}

	out := best[:]
	sortByRankDesc(out)
	return out, bestRank, nil
}

// EvaluateHand evaluates the set of cards in h, which must hold 5 to 7 cards.
func EvaluateHand(h Hand) ([]Card, HandRank, error) {
	return Evaluate(h.Cards())
}

func sortByRankDesc(cards []Card) {
	slices.SortFunc(cards, func(a, b Card) int {
		if a.Rank() != b.Rank() {
			return int(b.Rank()) - int(a.Rank())
		}
		return int(b.Suit()) - int(a.Suit())
	})
}

// rankFive computes the strength key of exactly five distinct cards.
func rankFive(cards [5]Card) HandRank {
	var counts [13]uint8
	flush := true
	for i, c := range cards {
		counts[c.Rank()]++
		if i > 0 && c.Suit() != cards[0].Suit() {
			flush = false
		}
	}

	// Order ranks by multiplicity then by rank, both descending.
	ordered := make([]uint8, 0, 5)
	for want := uint8(4); want >= 1; want-- {
		for r := int(Ace); r >= 0; r-- {
			if counts[r] == want {
				ordered = append(ordered, uint8(r))
			}
		}
	}

	if len(ordered) == 5 {
		high, straight := straightHigh(ordered)
		switch {
		case straight && flush:
			return encode(StraightFlush, high)
		case flush:
			return encode(Flush, ordered...)
		case straight:
			return encode(Straight, high)
		default:
			return encode(HighCard, ordered...)
		}
	}

	top := counts[ordered[0]]
	second := counts[ordered[1]]
	switch {
	case top == 4:
		return encode(FourOfAKind, ordered...)
	case top == 3 && second == 2:
		return encode(FullHouse, ordered...)
	case top == 3:
		return encode(ThreeOfAKind, ordered...)
	case top == 2 && second == 2:
		return encode(TwoPair, ordered...)
	default:
		return encode(Pair, ordered...)
	}
}

// straightHigh reports whether five distinct ranks (sorted descending) form a
// straight and returns its high card. A-5-4-3-2 plays as five high.
func straightHigh(desc []uint8) (uint8, bool) {
	if desc[0]-desc[4] == 4 {
		return desc[0], true
	}
	if desc[0] == Ace && desc[1] == Five && desc[4] == Two {
		return Five, true
	}
	return 0, false
}

func encode(t HandType, ranks ...uint8) HandRank {
	rank := HandRank(t) << typeShift
	for i, r := range ranks {
		rank |= HandRank(r) << (typeShift - slotBits*(i+1))
	}
	return rank
}
