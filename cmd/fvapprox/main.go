// Command fvapprox evaluates exact and approximate Fisher vector scoring
// and runs the L2 norm approximation experiment.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
