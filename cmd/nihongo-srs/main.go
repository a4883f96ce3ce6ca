package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/rcliao/nihongo-srs/internal/cli"
)

func main() {
	// A missing .env is fine; variables may come from the environment.
	_ = godotenv.Load()

	if err := cli.RootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
