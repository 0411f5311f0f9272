package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"schemapanel/internal/bulk"
	"schemapanel/internal/client"
	"schemapanel/internal/filter"
	"schemapanel/internal/table"
)

func newExportCommand(opts *rootOptions) *cobra.Command {
	var route, window, out, user string
	cmd := &cobra.Command{
		Use:   "export <entity>",
		Short: "Export entity rows to CSV",
		Long: `Reads rows from the backend and writes them as CSV.
With --window the bulk_read endpoint is used (all columns, created within the window),
otherwise the read route given by --route (default route when empty).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := opts.registry()
			if err != nil {
				return err
			}
			e, err := reg.Get(args[0])
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}

			var t table.Table
			if window != "" {
				w, err := client.ParseTimeWindow(window)
				if err != nil {
					return err
				}
				t, err = c.BulkRead(cmd.Context(), e.Name, w)
				if err != nil {
					return err
				}
			} else {
				if _, err := e.RoutePath(route, user); err != nil {
					return err
				}
				t, err = c.Read(cmd.Context(), e.Name, route, user)
				if err != nil {
					return err
				}
			}

			if out == "" {
				out = bulk.ExportFilename(e.Name, time.Now())
			}
			if err := writeCSV(cmd.OutOrStdout(), out, t); err != nil {
				return err
			}
			opts.log.Info("exported", zap.String("entity", e.Name), zap.Int("rows", t.Len()), zap.String("out", out))
			return nil
		},
	}
	cmd.Flags().StringVar(&route, "route", "", "read route key")
	cmd.Flags().StringVar(&window, "window", "", "bulk read window ("+windowNames()+")")
	cmd.Flags().StringVarP(&out, "out", "o", "", `output file; "-" for stdout (default <entity>_<timestamp>.csv)`)
	cmd.Flags().StringVar(&user, "user", "", "user id for user-scoped read routes")
	return cmd
}

func windowNames() string {
	names := make([]string, len(client.TimeWindows))
	for i, w := range client.TimeWindows {
		names[i] = string(w)
	}
	return strings.Join(names, "|")
}

func writeCSV(stdout io.Writer, path string, t table.Table) error {
	if path == "-" {
		return bulk.Export(stdout, t)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := bulk.Export(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readCSV(path string) (table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return table.Table{}, err
	}
	defer f.Close()
	return bulk.Parse(f)
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	var columns []string
	var user string
	cmd := &cobra.Command{
		Use:       "import <create|update|delete> <entity> <file.csv>",
		Short:     "Apply a CSV file to the backend in bulk",
		Args:      cobra.ExactArgs(3),
		ValidArgs: []string{"create", "update", "delete"},
		RunE: func(cmd *cobra.Command, args []string) error {
			op, entity, path := args[0], args[1], args[2]
			if user == "" {
				return bulk.ErrNoUser
			}
			reg, err := opts.registry()
			if err != nil {
				return err
			}
			e, err := reg.Get(entity)
			if err != nil {
				return err
			}
			t, err := readCSV(path)
			if err != nil {
				return err
			}
			engine, err := opts.engine(cmd.Context())
			if err != nil {
				return err
			}
			c, err := opts.client()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			var resp client.Response
			switch op {
			case "create":
				if !e.Scopes.Create {
					return fmt.Errorf("entity %s does not allow create", e.Name)
				}
				if err := bulk.ValidateRows(engine, e, t); err != nil {
					return err
				}
				p, err := bulk.BuildCreate(t, user)
				if err != nil {
					return err
				}
				resp, err = c.BulkCreate(ctx, e.Name, p)
				if err != nil {
					return err
				}
			case "update":
				if len(e.UpdateFields()) == 0 {
					return fmt.Errorf("entity %s does not allow update", e.Name)
				}
				if len(columns) == 0 {
					if columns, err = bulk.ConfirmableColumns(e, t); err != nil {
						return err
					}
				}
				p, err := bulk.BuildUpdate(e, t, user, columns)
				if err != nil {
					return err
				}
				if err := bulk.ValidateRows(engine, e, t, columns...); err != nil {
					return err
				}
				resp, err = c.BulkUpdate(ctx, e.Name, p)
				if err != nil {
					return err
				}
			case "delete":
				if !e.Scopes.Delete {
					return fmt.Errorf("entity %s does not allow delete", e.Name)
				}
				p, err := bulk.BuildDelete(t, user)
				if err != nil {
					return err
				}
				resp, err = c.BulkDelete(ctx, e.Name, p)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown import operation %q (create|update|delete)", op)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "columns to apply on update (default: every column of the file)")
	cmd.Flags().StringVar(&user, "user", "", "user id recorded with the change (required)")
	return cmd
}

// newFilterCommand прогоняет выражение фильтра по локальному CSV; удобно для отладки read-route фильтров.
func newFilterCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "filter <file.csv> <expression>",
		Short:   "Filter and sort a CSV file with the filter mini-language",
		Example: `  schemapanel filter customers.csv "issue == A AND mobile STARTS_WITH 98 ORDER BY created_at DESC"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := readCSV(args[0])
			if err != nil {
				return err
			}
			q, err := filter.Parse(args[1])
			if err != nil {
				return err
			}
			opts.log.Debug("filter parsed", zap.Stringer("query", q))
			if err := bulk.Export(cmd.OutOrStdout(), q.Apply(t)); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout())
			return err
		},
	}
}
