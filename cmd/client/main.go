package main // Entry point package

import (
	"context"   // Cancellation on shutdown signals
	"fmt"       // Error output before the logger exists
	"os"        // Exit codes and stderr
	"os/signal" // SIGINT/SIGTERM handling
	"syscall"   // SIGTERM constant

	"github.com/iliyamo/cinema-ticket-client/internal/app"    // Program wiring
	"github.com/iliyamo/cinema-ticket-client/internal/config" // Internal config loader
)

func main() {
	cfg := config.Load() // Load environment config

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM) // Stop on Ctrl-C or SIGTERM
	defer stop()

	if err := app.Run(ctx, cfg); err != nil { // Run until the UI exits
		fmt.Fprintln(os.Stderr, "cinema:", err) // The terminal is free again, report there
		stop()
		os.Exit(1)
	}
}
