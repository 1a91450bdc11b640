package main

import (
	"context"
	"log"
	"os"

	"github.com/blindvote/blindvote/internal/buildinfo"
	"github.com/blindvote/blindvote/internal/client/cli"
	"github.com/blindvote/blindvote/internal/client/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := cli.NewApp(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}
