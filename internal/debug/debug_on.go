//go:build dash_debug

package debug

import "fmt"

func assert(cond bool, msg ...any) {
	if !cond {
		panic(fmt.Sprintln(append([]any{"assertion failed:"}, msg...)...))
	}
}

func assertf(cond bool, format string, args ...any) {
	if !cond {
		panic("assertion failed: " + fmt.Sprintf(format, args...))
	}
}

func assertNoErr(err error) {
	if err != nil {
		panic(fmt.Sprintf("assertion failed: unexpected error: %v", err))
	}
}
