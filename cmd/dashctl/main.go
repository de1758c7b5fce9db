// Command dashctl is a small, single-process demo of the dash
// container model: it builds a loopback team, allocates a pattern or
// container over it, and prints what each simulated unit owns. It is
// not a cluster launcher - every "unit" is a goroutine in this one
// process, which is enough to exercise distribution and collective
// code without a real transport.
package main

import "github.com/Rodario/dash/cmd/dashctl/cmd"

func main() {
	cmd.Execute()
}
