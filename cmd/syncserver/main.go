package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/mlevitan/clinisync/internal/server"
	"github.com/mlevitan/clinisync/internal/server/auth"
	"github.com/mlevitan/clinisync/internal/server/config"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	// "syncserver token <user> <device>" mints a device token and exits
	// without touching the database
	if len(os.Args) >= 4 && os.Args[1] == "token" {
		token, err := auth.MintDeviceToken(os.Args[2], os.Args[3], []byte(cfg.SecretKey), cfg.TokenValidity)
		if err != nil {
			log.Fatalf("%v", err)
		}
		fmt.Println(token)
		return
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)
}
