// Command auctionctl replays auction scenarios against an in-process ledger.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/arnac-io/auctionescrow/pkg/app"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: auctionctl [-log-level level] run <scenario.yaml>\n")
	flag.PrintDefaults()
}

func main() {
	level := flag.String("log-level", "warn", "log level")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 2 || flag.Arg(0) != "run" {
		usage()
		os.Exit(2)
	}
	log := app.Logger(*level)
	defer log.Sync()

	ctx, cancel := app.SignalContext(context.Background())
	defer cancel()

	if err := run(ctx, log, flag.Arg(1)); err != nil {
		log.Error("scenario failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *zap.Logger, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	sc, err := LoadScenario(f)
	if err != nil {
		return err
	}
	if sc.Name != "" {
		fmt.Printf("scenario %v\n", sc.Name)
	}
	return NewSimulator(log, os.Stdout, sc.Start).Run(ctx, sc)
}
