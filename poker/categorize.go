package poker

// StartingCategory is a coarse preflop strength bucket for two hole cards.
type StartingCategory int

const (
	Trash StartingCategory = iota
	Weak
	Medium
	Strong
	Premium
)

func (c StartingCategory) String() string {
	return [...]string{"Trash", "Weak", "Medium", "Strong", "Premium"}[c]
}

// CategorizeStartingHand buckets two hole cards:
//
//	Premium  JJ+, AK
//	Strong   TT, AQ, AJ
//	Medium   77-99, suited KQ, KJ, QJ
//	Weak     22-66, suited cards within two ranks
//	Trash    everything else
//
// Invalid cards are Trash.
func CategorizeStartingHand(a, b Card) StartingCategory {
	if !a.IsValid() || !b.IsValid() || a == b {
		return Trash
	}
	lo, hi := a.Rank(), b.Rank()
	if lo > hi {
		lo, hi = hi, lo
	}
	pair := lo == hi
	suited := a.Suit() == b.Suit()

	switch {
	case pair && lo >= Jack, lo == King && hi == Ace:
		return Premium
	case pair && lo == Ten, hi == Ace && (lo == Queen || lo == Jack):
		return Strong
	case pair && lo >= Seven, suited && lo >= Ten:
		return Medium
	case pair, suited && hi-lo <= 2:
		return Weak
	}
	return Trash
}
