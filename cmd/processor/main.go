package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/lunavault/saleflow/app/processor"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := processor.Initialize(ctx)
	app.Start(ctx)
}
