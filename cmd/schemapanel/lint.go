package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"schemapanel/internal/schema"
)

func newLintCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lint [schema-path]",
		Short: "Check entity schemas for contradictions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schemaPath := opts.cfg.SchemaPath
			if len(args) == 1 {
				schemaPath = args[0]
			}
			entities, err := loadEntities(schemaPath)
			if err != nil {
				return err
			}
			issues := schema.Lint(entities...)
			for _, it := range issues {
				fmt.Fprintf(cmd.OutOrStdout(), "%s.%s [%s] %s\n", it.Entity, it.Field, it.Code, it.Message)
			}
			if len(issues) > 0 {
				return fmt.Errorf("%d issue(s) in %d entities", len(issues), len(entities))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d entities\n", len(entities))
			return nil
		},
	}
}

// loadEntities читает схемы без сборки реестра, чтобы показать все проблемы сразу.
func loadEntities(path string) ([]*schema.EntitySchema, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if st.IsDir() {
		return schema.LoadDir(path)
	}
	return schema.LoadFile(path)
}
