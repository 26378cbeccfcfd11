package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fwojciec/drip/config"
)

var errUsage = errors.New("usage")

// options holds the global flags. Only flags set on the command line
// override the configuration.
type options struct {
	configPath string
	backend    string
	url        string
	model      string
	mode       string
	thinking   bool
	store      string
	storePath  string
	throttle   time.Duration
	logLevel   string
	logFormat  string
}

func parseFlags(args []string, stderr io.Writer) (*flag.FlagSet, *options, error) {
	var o options
	fs := flag.NewFlagSet("drip", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "Path to the TOML config file")
	fs.StringVar(&o.backend, "backend", "", "Backend: agent, gemini")
	fs.StringVar(&o.url, "url", "", "Agent server base URL")
	fs.StringVar(&o.model, "model", "", "Model ID")
	fs.StringVar(&o.mode, "mode", "", "Backend mode")
	fs.BoolVar(&o.thinking, "thinking", false, "Request reasoning output")
	fs.StringVar(&o.store, "store", "", "Store driver: sqlite, file, memory")
	fs.StringVar(&o.storePath, "store-path", "", "Store file or directory")
	fs.DurationVar(&o.throttle, "throttle", 0, "Minimum interval between streamed redraws")
	fs.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&o.logFormat, "log-format", "", "Log format: text, json")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return fs, &o, nil
}

// apply copies explicitly set flags over cfg.
func (o *options) apply(fs *flag.FlagSet, cfg *config.Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			cfg.Backend = o.backend
		case "url":
			cfg.AgentURL = o.url
		case "model":
			cfg.Model = o.model
		case "mode":
			cfg.Mode = o.mode
		case "thinking":
			cfg.Thinking = o.thinking
		case "store":
			cfg.Store.Driver = o.store
		case "store-path":
			cfg.Store.Path = o.storePath
		case "throttle":
			cfg.Stream.Throttle.Duration = o.throttle
		case "log-level":
			cfg.Log.Level = o.logLevel
		case "log-format":
			cfg.Log.Format = o.logFormat
		}
	})
}

// resolveConfig layers the config file, the environment and the flags.
// getenv is the only access to the process environment.
func resolveConfig(fs *flag.FlagSet, o *options, getenv func(string) string, dir string) (config.Config, error) {
	cfg := config.Default()
	path := o.configPath
	if path == "" {
		path = getenv("DRIP_CONFIG")
	}
	if path == "" {
		path = filepath.Join(dir, "config.toml")
	}
	if err := config.Load(&cfg, path); err != nil {
		return config.Config{}, err
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return config.Config{}, err
	}
	o.apply(fs, &cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// dataDir is DRIP_HOME if set, else the per-user config directory.
func dataDir(getenv func(string) string) (string, error) {
	if d := getenv("DRIP_HOME"); d != "" {
		return d, nil
	}
	return config.Dir()
}

func run(ctx context.Context, args []string, getenv func(string) string, stdout, stderr io.Writer) error {
	fs, o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	dir, err := dataDir(getenv)
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(fs, o, getenv, dir)
	if err != nil {
		return err
	}

	name, rest := "chat", fs.Args()
	if len(rest) > 0 {
		name, rest = rest[0], rest[1:]
	}
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q", name)
	}

	a, err := newApp(ctx, cfg, dir, name == "chat", stdout, stderr)
	if err != nil {
		return err
	}
	defer a.close()

	return cmd(ctx, a, rest)
}

func usage(synopsis string) error {
	return fmt.Errorf("%w: drip %s", errUsage, synopsis)
}
