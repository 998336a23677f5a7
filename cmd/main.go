package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"studentdesk/internal/cli/scheme/colours"
	"studentdesk/internal/desk"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("Failed to read .env")
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
		fmt.Println("\n" + colours.Warning.Sprint("👋 Goodbye! Keep learning! 📚"))
	}()

	rootCmd := desk.NewRootCommand(desk.WithLogger(logrus.StandardLogger()))

	if err := rootCmd.ExecuteContext(ctx); err != nil && ctx.Err() == nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
}
