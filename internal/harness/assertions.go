package harness

import (
	"fmt"

	"github.com/roach88/keywords/internal/value"
)

// AssertionError is returned when an expectation fails.
type AssertionError struct {
	Expected any
	Actual   any
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s does not equal %s", show(e.Actual), show(e.Expected))
}

// Expectation wraps an actual value.
type Expectation struct {
	actual any
}

// Expect starts an expectation on v.
func Expect(v any) Expectation {
	return Expectation{actual: v}
}

// ToEqual fails unless the actual value strictly equals want. Arrays and
// objects compare by identity, as the expression language does.
func (e Expectation) ToEqual(want any) error {
	if value.StrictEqual(e.actual, want) {
		return nil
	}
	return &AssertionError{Expected: want, Actual: e.actual}
}

// show renders v as canonical JSON, falling back to its string form.
func show(v any) string {
	b, err := value.MarshalCanonical(v)
	if err != nil {
		return value.String(v)
	}
	return string(b)
}
