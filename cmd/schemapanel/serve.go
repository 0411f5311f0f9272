package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"schemapanel/internal/api"
	"schemapanel/internal/config"
	"schemapanel/internal/devbackend"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var port, backendURL, schemaPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the panel HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrideString(&opts.cfg.Port, port)
			overrideString(&opts.cfg.BackendURL, backendURL)
			overrideString(&opts.cfg.SchemaPath, schemaPath)

			reg, err := opts.registry()
			if err != nil {
				return err
			}
			engine, err := opts.engine(cmd.Context())
			if err != nil {
				return err
			}
			backend, err := opts.client()
			if err != nil {
				return err
			}
			opts.log.Info("starting panel",
				zap.String("port", opts.cfg.Port),
				zap.String("backend", backend.BaseURL()),
				zap.String("quality", opts.cfg.Quality.Provider))
			panel := api.NewPanel(reg, backend, engine, opts.log)
			return api.Run(cmd.Context(), ":"+opts.cfg.Port, api.NewRouter(panel), opts.log)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides config)")
	cmd.Flags().StringVar(&backendURL, "backend-url", "", "backend base URL (overrides config)")
	cmd.Flags().StringVar(&schemaPath, "schema", "", "schema file or directory (overrides config)")
	return cmd
}

func newDevBackendCommand(opts *rootOptions) *cobra.Command {
	var port, schemaPath string
	cmd := &cobra.Command{
		Use:   "devbackend",
		Short: "Run the in-memory reference backend",
		Long: `Serves the backend REST contract from process memory for local development.
Tables are created for every loaded schema and start empty; dev users are seeded from config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrideString(&opts.cfg.DevPort, port)
			overrideString(&opts.cfg.SchemaPath, schemaPath)

			reg, err := opts.registry()
			if err != nil {
				return err
			}
			storage := devbackend.NewStorage(reg, opts.cfg.DevUsers)
			opts.log.Info("starting dev backend",
				zap.String("port", opts.cfg.DevPort),
				zap.Strings("users", usernames(opts.cfg.DevUsers)))
			return api.Run(cmd.Context(), ":"+opts.cfg.DevPort, devbackend.NewRouter(storage, opts.log), opts.log)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides config devPort)")
	cmd.Flags().StringVar(&schemaPath, "schema", "", "schema file or directory (overrides config)")
	return cmd
}

func overrideString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func usernames(users []config.DevUser) []string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.Username
	}
	return out
}
