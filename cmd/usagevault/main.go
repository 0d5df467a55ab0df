package main

import (
	"context"
	"log"

	"github.com/mkarpov/usagevault/internal/cli"
	"github.com/mkarpov/usagevault/internal/config"
	"github.com/mkarpov/usagevault/internal/logging"
)

func main() {

	ctx := context.Background()

	cfg := config.LoadConfig()
	logger := logging.NewDefault()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}
	defer app.Close()

	app.Run(ctx)

}
