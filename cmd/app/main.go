package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"ContractScan/internal/di"
	"ContractScan/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "app initialization failed: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	// Blocks until SIGINT/SIGTERM.
	if err := app.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "app error: %v\n", err)
		cleanup()
		os.Exit(1)
	}
}
