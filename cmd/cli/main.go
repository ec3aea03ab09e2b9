package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/pdtools/internal/cli"
	"github.com/dmitrijs2005/pdtools/internal/document"
	"github.com/dmitrijs2005/pdtools/internal/logging"
)

func main() {
	logger := logging.NewJSONLogger(os.Stderr, os.Getenv("PDTOOLS_LOG_LEVEL"))
	app := cli.NewApp(document.NewPDFService(logger), logger)

	os.Exit(app.Run(context.Background(), os.Args[1:]))
}
