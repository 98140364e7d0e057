package debug

import "fmt"

// Assertf panics with the formatted message when b is false. Compiled out
// unless DEBUG is set.
func Assertf(b bool, format string, a ...any) {
	if DEBUG && !b {
		panic(fmt.Sprintf(format, a...))
	}
}
