// Command cryptochat talks to the crypto assistant from a terminal.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"path"

	"github.com/google/subcommands"

	"github.com/harshcrop/crypto-ai/internal/config"
	"github.com/harshcrop/crypto-ai/internal/logging"
	"github.com/harshcrop/crypto-ai/pkg/cryptochat"
)

func main() {
	var configPath string
	var dataDir string
	var plain bool

	flag.StringVar(&configPath, "config", "", "Path to a TOML config file (defaults to the per-user config)")
	flag.StringVar(&dataDir, "data-dir", "", "Directory for storing database and application data")
	flag.BoolVar(&plain, "plain", false, "Print raw markdown instead of styled output")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	for _, c := range commands {
		commander.Register(c, "")
	}
	flag.Parse()

	a := &app{
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
		plain:  plain,
		open: func() (*cryptochat.Core, func(), error) {
			return openCore(configPath, dataDir)
		},
	}
	os.Exit(int(commander.Execute(context.Background(), a)))
}

var commands = []subcommands.Command{
	&askCmd{},
	&chatCmd{},
	&snapshotCmd{},
	&historyCmd{},
}

// openCore loads the configuration and opens the core. Logs go to the
// daily file only so they do not interleave with replies.
func openCore(configPath, dataDir string) (*cryptochat.Core, func(), error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, nil, err
	}
	config.ApplyFlagOverrides(cfg, "", 0, dataDir, "")

	logDir, err := cfg.LogDir()
	if err != nil {
		return nil, nil, err
	}
	logger, writer, err := logging.NewLoggerWithOptions(logDir, logging.Options{
		Level:         logging.ParseLevel(cfg.Logging.Level, slog.LevelInfo),
		Format:        cfg.Logging.Format,
		RetentionDays: cfg.Logging.RetentionDays,
		Console:       io.Discard,
	})
	if err != nil {
		return nil, nil, err
	}
	dbPath, err := cfg.DBPath()
	if err != nil {
		_ = writer.Close()
		return nil, nil, err
	}
	core, err := cryptochat.OpenWithOptions(cryptochat.Options{
		DBPath:             dbPath,
		Logger:             logger,
		CoinGeckoURL:       cfg.CoinGecko.BaseURL,
		CoinGeckoAPIKey:    cfg.CoinGecko.APIKey,
		PriceCacheTTL:      cfg.CoinGecko.CacheTTL(),
		PriceFailThreshold: cfg.CoinGecko.FailThreshold,
		PriceFailWindow:    cfg.CoinGecko.FailWindow(),
		PriceCooldown:      cfg.CoinGecko.Cooldown(),
		HTTPTimeout:        cfg.CoinGecko.HTTPTimeout(),
	})
	if err != nil {
		_ = writer.Close()
		return nil, nil, err
	}
	return core, func() {
		_ = core.Close()
		_ = writer.Close()
	}, nil
}
