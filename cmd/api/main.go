// Package main is the entry point for the magic-link auth API.
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
