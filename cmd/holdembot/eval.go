package main

import (
	"fmt"
	"strings"

	"github.com/lox/holdembot/poker"
)

// EvalCmd evaluates cards given on the command line
type EvalCmd struct {
	Cards []string `arg:"" help:"Cards such as 'As Kd Qh Jc Ts' (2 for a starting hand, 5 to 7 for a made hand)"`
}

func (c *EvalCmd) Run() error {
	out, err := describe(strings.Join(c.Cards, " "))
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func describe(input string) (string, error) {
	cards, err := poker.ParseCards(input)
	if err != nil {
		return "", err
	}
	if len(cards) == 2 {
		if cards[0] == cards[1] {
			return "", fmt.Errorf("%w: duplicate card %s", poker.ErrInvalidInput, cards[0])
		}
		return fmt.Sprintf("%s: %s starting hand", poker.FormatCards(cards), poker.CategorizeStartingHand(cards[0], cards[1])), nil
	}
	best, rank, err := poker.Evaluate(cards)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s: %s", poker.FormatCards(best), rank), nil
}
