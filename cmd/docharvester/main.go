package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Local overrides only; a missing .env is the normal case.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
