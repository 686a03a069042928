package poker

// HoleCardCategory buckets a starting hand by preflop strength.
type HoleCardCategory string

const (
	CategoryPremium HoleCardCategory = "Premium"
	CategoryStrong  HoleCardCategory = "Strong"
	CategoryMedium  HoleCardCategory = "Medium"
	CategoryWeak    HoleCardCategory = "Weak"
	CategoryTrash   HoleCardCategory = "Trash"
	CategoryUnknown HoleCardCategory = "Unknown"
)

// Categories lists the categories from strongest to weakest.
var Categories = []HoleCardCategory{CategoryPremium, CategoryStrong, CategoryMedium, CategoryWeak, CategoryTrash}

// Categorize places two hole cards in a category:
// Premium (JJ+, AK), Strong (TT, AQ, AJ), Medium (77-99, suited broadway),
// Weak (22-66, suited connectors and one-gappers), Trash otherwise.
func Categorize(hole []Card) HoleCardCategory {
	if len(hole) != 2 || hole[0] == hole[1] {
		return CategoryUnknown
	}
	lo, hi := int(hole[0].Rank()), int(hole[1].Rank())
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi > int(Ace) {
		return CategoryUnknown
	}
	suited := hole[0].Suit() == hole[1].Suit()
	pair := lo == hi

	switch {
	case pair && lo >= int(Jack), lo == int(King) && hi == int(Ace):
		return CategoryPremium
	case pair && lo == int(Ten), hi == int(Ace) && (lo == int(Queen) || lo == int(Jack)):
		return CategoryStrong
	case pair && lo >= int(Seven), suited && lo >= int(Ten):
		return CategoryMedium
	case pair, suited && hi-lo <= 2:
		return CategoryWeak
	}
	return CategoryTrash
}

// CategorizeString categorizes hole cards written without separators, as
// in "AsKd".
func CategorizeString(s string) HoleCardCategory {
	if len(s) != 4 {
		return CategoryUnknown
	}
	a, err := ParseCard(s[:2])
	if err != nil {
		return CategoryUnknown
	}
	b, err := ParseCard(s[2:])
	if err != nil {
		return CategoryUnknown
	}
	return Categorize([]Card{a, b})
}
