package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/aws/aws-lambda-go/lambda"

	"portfolio-api/internal/app"
	"portfolio-api/internal/config"
)

func main() {
	var flags config.Flags
	kong.Parse(&flags,
		kong.Name("portfolio-api"),
		kong.Description("Chat proxy and contact forwarder for the portfolio site (AWS Lambda)."),
	)

	a, err := app.Build(context.Background(), flags, os.Stdout)
	if err != nil {
		slog.Error("failed to start", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(a.Logger)

	lambda.Start(a.Handler.Handle)
}
