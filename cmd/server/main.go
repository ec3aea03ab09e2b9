package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/pdtools/internal/server"
	"github.com/dmitrijs2005/pdtools/internal/server/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg, version)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
