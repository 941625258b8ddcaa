// Package main provides the bailer-worker entrypoint.
//
// The worker is spawned by bailer, executes exactly one task, and exits.
// It reads a JSON task from stdin and writes length-prefixed msgpack frames
// to stdout. It takes no arguments and reads no configuration.
//
// Exit codes:
//   - 0: task completed
//   - 1: task failed (failure frame emitted)
//   - 2: crash
//   - 3: invalid input
package main

import (
	"os"

	"github.com/gunwale-io/bailer/worker"
)

func main() {
	os.Exit(worker.Run(os.Stdin, os.Stdout, os.Stderr))
}
