// Command labassist-api serves thread persistence, audit ingestion and
// access checks for lab assistant clients.
//
// Exit codes: 0 = clean shutdown, 1 = error.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/heartmarshall/labassist-backend/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		stop()
		log.Fatalf("labassist-api: %v", err)
	}
}
