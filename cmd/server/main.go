// Package main runs the storefront API server.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/frogworks/storefront/internal/app/runtime"
	"github.com/frogworks/storefront/internal/config"
)

func main() {
	envFile := flag.String("env", ".env", "Path to env file")
	configPath := flag.String("config", "", "Path to config file (overrides STOREFRONT_CONFIG)")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		log.Printf("env file %s not loaded: %v", *envFile, err)
	}
	if *configPath != "" {
		os.Setenv("STOREFRONT_CONFIG", *configPath)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app, err := runtime.NewApplicationWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	if err := app.Shutdown(context.Background()); err != nil {
		log.Fatalf("Shutdown error: %v", err)
	}
}
