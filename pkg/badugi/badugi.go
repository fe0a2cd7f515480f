// Package badugi evaluates and compares ace-low badugi hands.
package badugi

import (
	"errors"
	"sort"

	"badugi-server/pkg/deck"
)

// HandSize is the number of cards dealt to each player
const HandSize = 4

// Score bands. The score of a hand is the band for its badugi count plus
// the sum of the card values in its badugi subset; lower scores win. Any
// paired hand scores the fixed penalty, worse than every unpaired hand.
const (
	fourCardBand  = 0
	threeCardBand = 10000
	twoCardBand   = 20000
	oneCardBand   = 30000
	pairedPenalty = 900000
)

// rank labels
const (
	RankBadugi    = "badugi"
	RankThreeCard = "three-card"
	RankTwoCard   = "two-card"
	RankOneCard   = "one-card"
	RankPaired    = "paired"
)

// ErrInvalidHandSize is returned when a hand does not contain exactly four cards
var ErrInvalidHandSize = errors.New("a badugi hand must contain exactly four cards")

// Result is the evaluation of a single hand
type Result struct {
	// Rank is the human-readable hand class
	Rank string `json:"rank"`

	// Score orders hands; lower is better
	Score int `json:"value"`

	// Count is the badugi count, the size of the chosen subset
	Count int `json:"badugiCount"`

	// Cards is the chosen subset, sorted ascending by value
	Cards []*deck.Card `json:"badugiCards"`
}

// PlayerHand pairs a player with their evaluated hand for comparison
type PlayerHand struct {
	PlayerID int64
	Result   *Result
}

// Evaluate determines the best badugi in the hand.
// The hand is searched for the largest subset whose suits are pairwise
// distinct and whose ranks are pairwise distinct, preferring subsets of
// size 4, then 3, then 2, then 1. Subsets of equal size are tried in
// ascending card-value order and the first qualifying one is kept.
func Evaluate(hand []*deck.Card) (*Result, error) {
	if len(hand) != HandSize {
		return nil, ErrInvalidHandSize
	}

	sorted := make([]*deck.Card, HandSize)
	copy(sorted, hand)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rank < sorted[j].Rank
	})

	subset := bestSubset(sorted)

	if hasPair(sorted) {
		return &Result{
			Rank:  RankPaired,
			Score: pairedPenalty,
			Count: len(subset),
			Cards: subset,
		}, nil
	}

	sum := 0
	for _, card := range subset {
		sum += card.Rank
	}

	var rank string
	var band int
	switch len(subset) {
	case 4:
		rank, band = RankBadugi, fourCardBand
	case 3:
		rank, band = RankThreeCard, threeCardBand
	case 2:
		rank, band = RankTwoCard, twoCardBand
	default:
		rank, band = RankOneCard, oneCardBand
	}

	return &Result{
		Rank:  rank,
		Score: band + sum,
		Count: len(subset),
		Cards: subset,
	}, nil
}

// bestSubset returns the largest suit-and-rank-distinct subset of the
// sorted hand. The hand must already be sorted ascending by rank.
func bestSubset(sorted []*deck.Card) []*deck.Card {
	if qualifies(sorted[0], sorted[1], sorted[2], sorted[3]) {
		return []*deck.Card{sorted[0], sorted[1], sorted[2], sorted[3]}
	}

	for i := 0; i < HandSize; i++ {
		for j := i + 1; j < HandSize; j++ {
			for k := j + 1; k < HandSize; k++ {
				if qualifies(sorted[i], sorted[j], sorted[k]) {
					return []*deck.Card{sorted[i], sorted[j], sorted[k]}
				}
			}
		}
	}

	for i := 0; i < HandSize; i++ {
		for j := i + 1; j < HandSize; j++ {
			if qualifies(sorted[i], sorted[j]) {
				return []*deck.Card{sorted[i], sorted[j]}
			}
		}
	}

	return []*deck.Card{sorted[0]}
}

func qualifies(cards ...*deck.Card) bool {
	suits := make(map[deck.Suit]bool)
	ranks := make(map[int]bool)
	for _, card := range cards {
		if suits[card.Suit] || ranks[card.Rank] {
			return false
		}

		suits[card.Suit] = true
		ranks[card.Rank] = true
	}

	return true
}

func hasPair(cards []*deck.Card) bool {
	ranks := make(map[int]bool)
	for _, card := range cards {
		if ranks[card.Rank] {
			return true
		}

		ranks[card.Rank] = true
	}

	return false
}

// Compare returns the winners among the evaluated hands.
// The minimum score wins. Score ties are broken by comparing the badugi
// subsets card-by-card from the highest value down; the lower card wins.
// Hands equal through the entire subset remain tied and split the pot.
func Compare(hands []*PlayerHand) []*PlayerHand {
	if len(hands) == 0 {
		return nil
	}

	best := hands[0].Score()
	for _, h := range hands[1:] {
		if h.Score() < best {
			best = h.Score()
		}
	}

	winners := make([]*PlayerHand, 0, len(hands))
	for _, h := range hands {
		if h.Score() != best {
			continue
		}

		if len(winners) == 0 {
			winners = append(winners, h)
			continue
		}

		switch compareSubsets(h.Result.Cards, winners[0].Result.Cards) {
		case -1:
			winners = winners[:0]
			winners = append(winners, h)
		case 0:
			winners = append(winners, h)
		}
	}

	return winners
}

// Score returns the hand's numeric score
func (p *PlayerHand) Score() int {
	return p.Result.Score
}

// compareSubsets compares two equal-length ascending subsets from the
// highest card down. Returns -1 if a is better (lower), 1 if b is better,
// and 0 if they are identical by value at every position.
func compareSubsets(a, b []*deck.Card) int {
	// equal scores with unequal subset sizes only happens between paired
	// hands, which always split
	if len(a) != len(b) {
		return 0
	}

	for i := len(a) - 1; i >= 0; i-- {
		if a[i].Rank < b[i].Rank {
			return -1
		}

		if a[i].Rank > b[i].Rank {
			return 1
		}
	}

	return 0
}
