package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ngamolsky/Curbd/client"
	"github.com/ngamolsky/Curbd/config"
)

func main() {
	fs := pflag.NewFlagSet("curbd", pflag.ExitOnError)
	config.RegisterClientFlags(fs)
	text := fs.StringP("text", "t", "", "additional instructions for the post")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: curbd [flags] [image...]\n\nWithout images curbd starts an interactive shell.\n\n")
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	cfg, err := config.InitClientConfig(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if cfg.APIKey == "" {
		zap.L().Warn("no API key configured, the generation API will reject requests")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	session := client.NewSession(client.NewConfig(cfg))
	defer session.Close()

	if fs.NArg() == 0 {
		newShell(session, os.Stdin, os.Stdout).run(ctx)
		return
	}
	if err := oneShot(ctx, session, fs.Args(), *text); err != nil {
		session.Close()
		os.Exit(1)
	}
}

// oneShot adds paths, submits once and prints the outcome.
func oneShot(ctx context.Context, session *client.Session, paths []string, text string) error {
	if err := addPaths(session, paths); err != nil {
		fmt.Fprintf(os.Stdout, "! %s\n", client.MsgProcessingFailed)
	}
	if err := session.SetInput(text); err != nil {
		return err
	}
	if _, err := session.Submit(ctx); err != nil {
		if errors.Is(err, client.ErrNoImages) {
			fmt.Fprintln(os.Stdout, "No images to submit.")
		} else {
			printBanner(os.Stdout, session.Snapshot())
		}
		return err
	}
	printResult(os.Stdout, session.Snapshot())
	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}
