// Package cli implements the offline pdtools command line: the same
// protect, unlock and compare tools the server runs, applied to local files.
package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/dmitrijs2005/pdtools/internal/common"
	"github.com/dmitrijs2005/pdtools/internal/document"
	"github.com/dmitrijs2005/pdtools/internal/logging"
	"github.com/spf13/cobra"
)

// maxDownloadSize caps archived downloads.
const maxDownloadSize = 200 << 20

type App struct {
	docs   document.Service
	logger logging.Logger
	out    io.Writer
	errOut io.Writer
}

func NewApp(docs document.Service, l logging.Logger) *App {
	return &App{docs: docs, logger: l, out: os.Stdout, errOut: os.Stderr}
}

// NewRootCommand builds the command tree.
func (a *App) NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "pdtools",
		Short:         "Protect, unlock and compare PDF documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.AddCommand(
		a.protectCommand(),
		a.unlockCommand(),
		a.compareCommand(),
		a.hashCommand(),
		a.inspectCommand(),
		a.downloadCommand(),
	)

	return root
}

// Run executes the CLI with args and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	root := a.NewRootCommand()
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		a.logger.Debug(ctx, "command failed", "error", err.Error())
		_, _ = io.WriteString(a.errOut, "Error: "+userMessage(err)+"\n")
		return 1
	}
	return 0
}

func userMessage(err error) string {
	if errors.Is(err, common.ErrorIncorrectPassword) {
		return common.IncorrectPasswordMessage
	}
	return err.Error()
}
