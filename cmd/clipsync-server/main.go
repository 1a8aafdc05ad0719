package main

import (
	"context"
	"fmt"
	"os"

	"clipsync-server-go/internal/bootstrap"
)

func main() {
	if err := bootstrap.Run(context.Background()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "clipsync-server failed: %v\n", err)
		os.Exit(1)
	}
}
