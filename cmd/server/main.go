package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/bravo68web/gitolfs/internal/config"
	"github.com/bravo68web/gitolfs/internal/infrastructure/tokens"
	"github.com/bravo68web/gitolfs/internal/server"
	"github.com/bravo68web/gitolfs/pkg/logger"
)

func main() {
	cmd := &cli.Command{
		Name:  "gitolfs",
		Usage: "Git LFS server backed by gitolite permissions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			tokensCommand(),
		},
		// Bare invocation serves, matching how the process is deployed
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runServe(ctx, cmd.String("config"))
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the LFS HTTP server",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runServe(ctx, cmd.String("config"))
		},
	}
}

func tokensCommand() *cli.Command {
	return &cli.Command{
		Name:  "tokens",
		Usage: "Token store maintenance",
		Commands: []*cli.Command{
			{
				Name:  "prune",
				Usage: "Delete expired token files",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := config.Load(cmd.String("config"))
					if err != nil {
						return err
					}
					if err := initLogging(cfg); err != nil {
						return err
					}
					defer logger.Close()

					store, err := tokens.NewStore(&cfg.Tokens)
					if err != nil {
						return err
					}
					removed, err := store.Prune()
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.Writer, "pruned %d expired token(s)\n", removed)
					return nil
				},
			},
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}
	defer logger.Close()

	srv, err := server.New(ctx, cfg)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(runCtx)
}

func initLogging(cfg *config.Config) error {
	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Format = cfg.Logging.Format
	logCfg.Development = cfg.IsDevelopment()
	if cfg.Logging.Output == "file" {
		logCfg.Output = logger.OutputFile
		if cfg.Logging.OutputPath != "" {
			logCfg.FilePath = cfg.Logging.OutputPath
		}
	}
	return logger.Init(logCfg)
}
