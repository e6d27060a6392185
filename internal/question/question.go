// Package question owns the quiz question bank: the immutable in-memory
// representation served during a round, the flat-file formats it can be
// loaded from, and the database-backed store behind the admin tooling.
package question

import (
	"fmt"
	"strings"
)

// OptionCount is the fixed number of choices every question carries.
const OptionCount = 4

// Question is one quiz question. The list served during a round is loaded
// once at startup and never mutated afterwards.
type Question struct {
	// ID is unique within the bank and echoed on every wire message that
	// concerns this question, so server and clients agree on which answer
	// window a submission belongs to.
	ID      int
	Text    string
	Options []string
	// Correct is the 1-based index of the right answer within Options.
	Correct int
}

// Validate reports whether the question is playable.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("question %d has no text", q.ID)
	}
	if len(q.Options) != OptionCount {
		return fmt.Errorf("question %d has %d options, want %d", q.ID, len(q.Options), OptionCount)
	}
	if q.Correct < 1 || q.Correct > OptionCount {
		return fmt.Errorf("question %d has correct answer %d out of range 1..%d", q.ID, q.Correct, OptionCount)
	}
	return nil
}
