package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/ardnew/botscript/cli"
	"github.com/ardnew/botscript/log"
)

func main() {
	err := cli.Run(context.Background(), os.Exit, os.Args[1:]...)
	if err != nil {
		log.Error(
			"run failed",
			slog.Any("error", err),
		) // engine and command errors render through LogValue
		os.Exit(1)
	}
}
