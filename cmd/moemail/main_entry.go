//go:build !testcoverage

package main

import "os"

func main() {
	ctx, cancel := signalContext()
	defer cancel()
	if err := run(ctx, os.Args, DefaultConfig()); err != nil {
		fatal("%v", err)
	}
}
