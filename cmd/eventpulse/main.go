// Command eventpulse is the operator CLI for the ingestion registry: submit
// files, inspect ingestions and their reports, replay, reclaim, validate
// contracts, and manage configuration.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
