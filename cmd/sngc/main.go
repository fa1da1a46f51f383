package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	cmd "github.com/jpfielding/sng.go/cmd/sngc/cmd"
	"github.com/jpfielding/sng.go/pkg/logging"
	"github.com/jpfielding/sng.go/pkg/sng"
)

var (
	GitSHA string = "NA"
)

func main() {
	// register sigterm for graceful shutdown
	ctx, cnc := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cnc()
	go func() {
		defer cnc() // this cnc is from notify and removes the signal so subsequent ctrl-c will restore kill functions
		<-ctx.Done()
	}()
	slog.SetDefault(logging.Logger(os.Stderr, false, slog.LevelInfo))
	ctx = logging.AppendCtx(ctx,
		slog.Group("sng",
			slog.String("name", "sngc"),
			slog.String("git", GitSHA),
		))
	if err := cmd.NewRoot(ctx, GitSHA).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		// backend-reported failures exit 1, everything detected
		// locally (lex/grammar/semantic, bad flags) exits 2
		if sng.IsBackend(err) {
			os.Exit(1)
		}
		os.Exit(2)
	}
}
