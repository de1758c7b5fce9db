//go:build !dash_debug

package debug

func assert(bool, ...any)             {}
func assertf(bool, string, ...any)    {}
func assertNoErr(error)               {}
