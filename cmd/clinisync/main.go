package main

import (
	"context"
	"log"

	"github.com/mlevitan/clinisync/internal/client/cli"
	"github.com/mlevitan/clinisync/internal/client/config"
	"github.com/mlevitan/clinisync/internal/collab"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	// transcription is disabled by default; sessions are typed in
	transcriber := &collab.FakeTranscriber{Transcript: &collab.Transcript{}}
	directory := collab.NewStaticDirectory()

	app, err := cli.NewApp(ctx, cfg, transcriber, directory)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}
