package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/elhs-robotics/krunchbot/internal/logger"
	"github.com/elhs-robotics/krunchbot/internal/mcp"
)

func main() {
	_ = godotenv.Load()

	// stdout carries the protocol, logs go to stderr
	log := logger.New(os.Getenv("LOG_LEVEL"), os.Stderr)

	apiURL := os.Getenv("KRUNCHBOT_API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server := mcp.NewServer(apiURL, os.Getenv("API_USERNAME"), os.Getenv("API_PASSWORD"), 10*time.Second, log)
	if err := server.Run(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		log.Fatalf("MCP server error: %v", err)
	}
}
