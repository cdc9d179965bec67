// Package questions holds the fixed exam question lists and draws from them.
package questions

import (
	"fmt"
	"math/rand"

	"github.com/korjavin/examquizbot/models"
)

// Bank is an immutable set of numbered questions per category
type Bank struct {
	lists map[models.Category][]string
	intn  func(n int) int
}

// New creates a bank over the built-in question lists.
// intn must return a value in [0, n); nil means math/rand.
func New(intn func(n int) int) *Bank {
	if intn == nil {
		intn = rand.Intn
	}
	return &Bank{
		lists: map[models.Category][]string{
			models.CategorySpecialty: specialtyQuestions,
			models.CategoryDirection: directionQuestions,
		},
		intn: intn,
	}
}

// Default returns a bank drawing with math/rand
func Default() *Bank {
	return New(nil)
}

func (b *Bank) list(c models.Category) []string {
	l, ok := b.lists[c]
	if !ok {
		panic(fmt.Sprintf("questions: unknown category %q", c))
	}
	return l
}

// Draw picks a question of category c uniformly at random
func (b *Bank) Draw(c models.Category) (number int, text string) {
	l := b.list(c)
	i := b.intn(len(l))
	return i + 1, l[i]
}

// DrawMixed flips a fair coin between the categories and draws from the winner
func (b *Bank) DrawMixed() (number int, text string, c models.Category) {
	c = models.Categories[b.intn(len(models.Categories))]
	number, text = b.Draw(c)
	return number, text, c
}

// DrawFor draws the next question for a quiz in mode m
func (b *Bank) DrawFor(m models.Mode) (models.ActiveQuestion, string) {
	switch m {
	case models.ModeSpecialty:
		n, text := b.Draw(models.CategorySpecialty)
		return models.ActiveQuestion{Number: n, Category: models.CategorySpecialty}, text
	case models.ModeDirection:
		n, text := b.Draw(models.CategoryDirection)
		return models.ActiveQuestion{Number: n, Category: models.CategoryDirection}, text
	case models.ModeMixed:
		n, text, c := b.DrawMixed()
		return models.ActiveQuestion{Number: n, Category: c}, text
	}
	panic(fmt.Sprintf("questions: cannot draw for mode %q", m))
}

// MaxNumber returns the highest question number of category c
func (b *Bank) MaxNumber(c models.Category) int {
	return len(b.list(c))
}

// Text returns the text of question number n in category c
func (b *Bank) Text(c models.Category, n int) (string, bool) {
	l := b.list(c)
	if n < 1 || n > len(l) {
		return "", false
	}
	return l[n-1], true
}

// DisplayName returns the human label of category c
func (b *Bank) DisplayName(c models.Category) string {
	switch c {
	case models.CategorySpecialty:
		return fmt.Sprintf("Specialty (%d questions)", b.MaxNumber(c))
	case models.CategoryDirection:
		return fmt.Sprintf("Direction (%d questions)", b.MaxNumber(c))
	}
	panic(fmt.Sprintf("questions: unknown category %q", c))
}
