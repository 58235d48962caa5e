// Polygon - a UDP datagram exchange tool with timed replies and retransmission.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"polygon/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "polygon: %v\n", err)
		os.Exit(1)
	}
}
