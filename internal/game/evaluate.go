package game

import (
	"errors"
	"strings"
)

var ErrInvalidGuess = errors.New("invalid guess")

// gridNames maps the button choices to the names the item data uses for
// the target grid.
var gridNames = map[string]string{
	"1": "first",
	"2": "second",
	"3": "third",
}

// EvaluateGridGuess reports whether the chosen grid number refers to the
// target grid name.
func EvaluateGridGuess(choice, target string) bool {
	return gridNames[choice] == target
}

// EvaluateWordGuess reports whether guess matches target, ignoring case.
func EvaluateWordGuess(guess, target string) bool {
	return strings.EqualFold(strings.TrimSpace(guess), target)
}

type LetterMark string

const (
	MarkExact   LetterMark = "exact"   // same letter, same position
	MarkPresent LetterMark = "present" // letter occurs elsewhere in the target
	MarkAbsent  LetterMark = "absent"  // letter does not occur at all
)

type LetterFeedback struct {
	Letter rune
	Mark   LetterMark
}

// EvaluateLetterFeedback scores guess against target position by position.
// A non-exact letter is marked present whenever it occurs anywhere in the
// target, without deducting already-matched positions — a letter repeated
// in the guess can be marked present twice even if the target holds it
// once. This mirrors the behavior the experiments ran with; see DESIGN.md.
func EvaluateLetterFeedback(guess, target string) []LetterFeedback {
	g := []rune(strings.ToLower(guess))
	t := []rune(strings.ToLower(target))
	occurs := make(map[rune]bool, len(t))
	for _, r := range t {
		occurs[r] = true
	}
	fb := make([]LetterFeedback, len(g))
	for i, r := range g {
		switch {
		case i < len(t) && r == t[i]:
			fb[i] = LetterFeedback{Letter: r, Mark: MarkExact}
		case occurs[r]:
			fb[i] = LetterFeedback{Letter: r, Mark: MarkPresent}
		default:
			fb[i] = LetterFeedback{Letter: r, Mark: MarkAbsent}
		}
	}
	return fb
}

// FormatFeedback renders letter feedback as "A <exact> B <present> ..."
// for the chat transcript.
func FormatFeedback(fb []LetterFeedback) string {
	var b strings.Builder
	for i, f := range fb {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.ToUpper(string(f.Letter)))
		b.WriteString(" <")
		b.WriteString(string(f.Mark))
		b.WriteByte('>')
	}
	return b.String()
}

// ValidateGuess checks the shape of a word guess: a single token of
// exactly wantLen letters. Violations are reported as ErrInvalidGuess and
// never fatal.
func ValidateGuess(guess string, wantLen int) error {
	fields := strings.Fields(guess)
	if len(fields) != 1 {
		return ErrInvalidGuess
	}
	if len([]rune(fields[0])) != wantLen {
		return ErrInvalidGuess
	}
	return nil
}
