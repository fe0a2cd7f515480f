package deck

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Suit represents a card suit
type Suit string

// suit constants
const (
	Hearts   Suit = "hearts"
	Clubs    Suit = "clubs"
	Diamonds Suit = "diamonds"
	Spades   Suit = "spades"
)

// Card is an individual playing card. Aces are always low, so ranks run
// from 1 (ace) through 13 (king).
type Card struct {
	Rank int  `json:"rank"`
	Suit Suit `json:"suit"`
}

// rank constants
const (
	Ace   = 1
	Ten   = 10
	Jack  = 11
	Queen = 12
	King  = 13
)

func (c *Card) String() string {
	var suit string
	switch c.Suit {
	case Clubs:
		suit = "♣"
	case Diamonds:
		suit = "♢"
	case Hearts:
		suit = "♡"
	case Spades:
		suit = "♠"
	default:
		panic("unknown suit")
	}

	return fmt.Sprintf("%s%s", c.RankName(), suit)
}

// RankName returns the single-character name for the card's rank (A, 2-9, T, J, Q, K)
func (c *Card) RankName() string {
	switch c.Rank {
	case Ace:
		return "A"
	case Ten:
		return "T"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	}

	return strconv.Itoa(c.Rank)
}

// ID returns the compact identifier for the card (e.g., "hA" or "s7").
// Clients reference cards by this identifier when exchanging.
func (c *Card) ID() string {
	var suit string
	switch c.Suit {
	case Clubs:
		suit = "c"
	case Diamonds:
		suit = "d"
	case Hearts:
		suit = "h"
	case Spades:
		suit = "s"
	default:
		panic("unknown suit")
	}

	return suit + c.RankName()
}

// Equal returns true if the cards are equal (matches suit and rank)
func (c *Card) Equal(card *Card) bool {
	return c.Suit == card.Suit && c.Rank == card.Rank
}

// MarshalJSON implements json.Marshaler. The wire shape carries the rank
// name, the numeric value, and the identifier clients send back on exchange.
func (c *Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Suit  Suit   `json:"suit"`
		Rank  string `json:"rank"`
		Value int    `json:"value"`
		ID    string `json:"id"`
	}{
		Suit:  c.Suit,
		Rank:  c.RankName(),
		Value: c.Rank,
		ID:    c.ID(),
	})
}

var cardRx = regexp.MustCompile(`(?i)^([cdhs])([2-9atjqk])\z`)

// CardFromString returns a Card from the string.
// The string must be in the format of <suit><rank> where suit in [cdhs]
// and rank in [A2-9TJQK], e.g. "hA" or "d7".
func CardFromString(s string) *Card {
	if s == "" {
		return nil
	}

	match := cardRx.FindStringSubmatch(s)
	if match == nil {
		panic(fmt.Sprintf("could not parse card: %s", s))
	}

	var suit Suit
	switch strings.ToLower(match[1]) {
	case "c":
		suit = Clubs
	case "d":
		suit = Diamonds
	case "h":
		suit = Hearts
	case "s":
		suit = Spades
	default:
		// should never be hit due to the regexp
		panic("unknown suit")
	}

	var rank int
	switch strings.ToUpper(match[2]) {
	case "A":
		rank = Ace
	case "T":
		rank = Ten
	case "J":
		rank = Jack
	case "Q":
		rank = Queen
	case "K":
		rank = King
	default:
		var err error
		rank, err = strconv.Atoi(match[2])
		if err != nil {
			panic(fmt.Sprintf("could not parse card `%s`: %v", s, err))
		}
	}

	return &Card{
		Rank: rank,
		Suit: suit,
	}
}

// CardsFromString will returns a slice of cards
func CardsFromString(s string) []*Card {
	if s == "" {
		return []*Card{}
	}

	cardStrings := strings.Split(s, ",")
	cards := make([]*Card, len(cardStrings))
	for i, card := range cardStrings {
		cards[i] = CardFromString(card)
	}

	return cards
}

// CardsToString will convert a slice of cards to a string in the format of c2,h3,s4,...
func CardsToString(cards []*Card) string {
	c := make([]string, len(cards))
	for i, card := range cards {
		c[i] = card.ID()
	}

	return strings.Join(c, ",")
}
