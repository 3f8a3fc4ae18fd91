package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	appservice "github.com/bravo68web/gitolfs/internal/application/service"
	"github.com/bravo68web/gitolfs/internal/config"
	"github.com/bravo68web/gitolfs/internal/infrastructure/access"
	"github.com/bravo68web/gitolfs/internal/infrastructure/tokens"
	"github.com/bravo68web/gitolfs/pkg/logger"
)

// gitolfs-authenticate is the git-lfs-authenticate implementation invoked
// by the SSH forced command. gitolite has already authenticated the user
// and exported their name in the environment; this binary checks the
// requested repo and action against gitolite, mints or refreshes the
// user's token, and prints the credential block for the LFS client.
func main() {
	cmd := &cli.Command{
		Name:      "gitolfs-authenticate",
		Usage:     "Issue LFS credentials for an SSH-authenticated gitolite user",
		ArgsUsage: "<repository> <download|upload>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return fmt.Errorf("usage: %s <repository> <download|upload>", cmd.Name)
	}
	repo := cmd.Args().Get(0)
	action := cmd.Args().Get(1)

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	// stdout carries only the credential block; everything else goes to stderr
	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	logCfg.Format = cfg.Logging.Format
	logCfg.Stderr = true
	if err := logger.Init(logCfg); err != nil {
		return err
	}
	defer logger.Close()

	user := os.Getenv(cfg.Gitolite.UserEnv)

	// gitolite's forced-command environment tells us where its binary lives
	binDir := cfg.Gitolite.BinDir
	if fromEnv := os.Getenv(cfg.Gitolite.BinDirEnv); fromEnv != "" {
		binDir = fromEnv
	}
	oracle := access.NewGitoliteOracle(binDir)

	store, err := tokens.NewStore(&cfg.Tokens)
	if err != nil {
		return err
	}

	authenticator := appservice.NewAuthenticatorService(cfg, store, oracle)
	creds, err := authenticator.Authenticate(ctx, user, repo, action)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(creds)
}
