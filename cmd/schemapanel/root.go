package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"schemapanel/internal/client"
	"schemapanel/internal/config"
	"schemapanel/internal/logging"
	"schemapanel/internal/schema"
	"schemapanel/internal/validate"
)

// rootOptions: глобальные флаги и то, что из них собрано до запуска подкоманды.
type rootOptions struct {
	ConfigPath string
	LogLevel   string
	Verbose    bool

	cfg config.Config
	log *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "schemapanel",
		Short:         "Schema-driven admin panel",
		Long:          "Admin panel whose screens, forms, validation and bulk CSV flows are generated from per-entity YAML schemas.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.log != nil {
				_ = opts.log.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "config.json", "config file (.json or .toml)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging in development format")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newDevBackendCommand(opts))
	cmd.AddCommand(newExportCommand(opts))
	cmd.AddCommand(newImportCommand(opts))
	cmd.AddCommand(newFilterCommand(opts))
	cmd.AddCommand(newLintCommand(opts))

	return cmd
}

func (o *rootOptions) setup() error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
		cfg.LogDev = true
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.log = log
	return nil
}

func (o *rootOptions) registry() (*schema.Registry, error) {
	reg, err := schema.Load(o.cfg.SchemaPath)
	if err != nil {
		return nil, fmt.Errorf("loading schemas from %s: %w", o.cfg.SchemaPath, err)
	}
	o.log.Info("schemas loaded", zap.Int("entities", reg.Len()), zap.String("path", o.cfg.SchemaPath))
	return reg, nil
}

func (o *rootOptions) client() (*client.Client, error) {
	timeout, err := o.cfg.Timeout()
	if err != nil {
		return nil, err
	}
	return client.New(o.cfg.BackendURL, client.WithLogger(o.log), client.WithTimeout(timeout)), nil
}

// qualityChecker собирает внешний оценщик по config.quality.
// Без ключа каждая проверка проваливается с ErrNoAPIKey: так видно, что оценщик не настроен.
func qualityChecker(ctx context.Context, q config.Quality, timeout time.Duration, log *zap.Logger) (validate.QualityChecker, error) {
	provider := strings.ToLower(strings.TrimSpace(q.Provider))
	if provider == "" || provider == "none" {
		return validate.NopChecker{}, nil
	}
	if q.APIKey == "" {
		log.Warn("quality checks enabled without api key", zap.String("provider", provider))
		return validate.CheckerFunc(func(context.Context, string, string, string) (bool, error) {
			return false, validate.ErrNoAPIKey
		}), nil
	}
	switch provider {
	case "openai":
		return validate.NewOpenAIChecker(validate.OpenAIConfig{
			BaseURL: q.BaseURL,
			APIKey:  q.APIKey,
			Model:   q.Model,
			Timeout: timeout,
		}), nil
	case "gemini":
		g, err := validate.NewGeminiChecker(ctx, q.APIKey, q.Model)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	return nil, fmt.Errorf("unknown quality provider %q", q.Provider)
}

func (o *rootOptions) engine(ctx context.Context) (*validate.Engine, error) {
	timeout, err := o.cfg.Timeout()
	if err != nil {
		return nil, err
	}
	checker, err := qualityChecker(ctx, o.cfg.Quality, timeout, o.log)
	if err != nil {
		return nil, err
	}
	return validate.New(
		validate.WithQualityChecker(checker),
		validate.WithConcurrency(o.cfg.Quality.Concurrency),
		validate.WithLogger(o.log),
	), nil
}
