package main

import (
	"os"

	"github.com/AUW160150/Sigmatch/pkg/common/config"
	"github.com/AUW160150/Sigmatch/pkg/common/logger"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	// Command output goes to stdout; keep logs out of it.
	logger.Init(logger.Options{Level: cfg.LogLevel, Format: "text", Output: os.Stderr})

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
