package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ehr/examreport/internal/config"
	"github.com/ehr/examreport/internal/domain/examination"
	"github.com/ehr/examreport/internal/domain/report"
	"github.com/ehr/examreport/internal/platform/db"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "examreport-server",
		Short:        "School examination record and report server",
		SilenceUsage: true,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(recordsCmd())
	root.AddCommand(reportCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator, schema string) error {
				fmt.Printf("Running migrations on schema: %s\n", schema)
				count, err := m.Up(ctx, schema)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	migrationFlags(upCmd)
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator, schema string) error {
				statuses, err := m.Status(ctx, schema)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}

				fmt.Printf("Migration status for schema: %s\n", schema)
				fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				fmt.Println("---------- ---------------------------------------- ---------- --------------------")
				for _, s := range statuses {
					status := "pending"
					appliedAt := ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	}
	migrationFlags(statusCmd)
	cmd.AddCommand(statusCmd)

	return cmd
}

func migrationFlags(cmd *cobra.Command) {
	cmd.Flags().String("schema", "", "Target schema for migrations (defaults to DB_SCHEMA)")
	cmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
}

func withMigrator(cmd *cobra.Command, fn func(ctx context.Context, m *db.Migrator, schema string) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	schema, _ := cmd.Flags().GetString("schema")
	if schema == "" {
		schema = cfg.DBSchema
	}
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = cfg.MigrationsDir
	}

	ctx := cmd.Context()
	pool, err := db.NewPool(ctx, poolConfig(cfg))
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, db.NewMigrator(pool, dir), schema)
}

func recordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Manage stored examination records",
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored record and flush cached reports",
		Long: "Delete every stored examination record and flush the report cache. " +
			"Issued patient IDs stay reserved and are never handed out again.",
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes && !confirm(cmd, "Delete ALL examination records? [y/N] ") {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			ctx := cmd.Context()

			pool, err := db.NewPool(ctx, poolConfig(cfg))
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := examination.NewService(examination.NewRecordRepo(pool, cfg.StorageTimeout), nil, logger)
			n, err := svc.ClearRecords(ctx)
			if err != nil {
				return fmt.Errorf("clear records: %w", err)
			}

			reportCache, closeCache := openCache(ctx, cfg, logger)
			defer closeCache()
			reports := report.NewService(svc, nil, reportCache, 0, logger)
			if err := reports.Invalidate(ctx); err != nil {
				logger.Warn().Err(err).Msg("report cache not flushed")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d record(s).\n", n)
			return nil
		},
	}
	clearCmd.Flags().Bool("yes", false, "Skip the confirmation prompt")
	cmd.AddCommand(clearCmd)

	return cmd
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate reports offline",
	}

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Render the report of one patient to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, _ := cmd.Flags().GetString("patient-id")
			out, _ := cmd.Flags().GetString("out")
			asPDF, _ := cmd.Flags().GetBool("pdf")
			if pid == "" {
				return fmt.Errorf("--patient-id is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			ctx := cmd.Context()

			pool, err := db.NewPool(ctx, poolConfig(cfg))
			if err != nil {
				return err
			}
			defer pool.Close()

			renderer, err := newRenderer(cfg, logger)
			if err != nil {
				return err
			}
			rec, err := examination.NewRecordRepo(pool, cfg.StorageTimeout).Get(ctx, pid)
			if err != nil {
				return fmt.Errorf("load record %s: %w", pid, err)
			}

			var doc report.Document
			if asPDF {
				doc, err = renderer.RenderPDF(ctx, rec)
			} else {
				doc, err = renderer.Render(ctx, rec)
			}
			if err != nil {
				return err
			}

			if out == "" {
				out = doc.Filename()
			}
			if err := os.WriteFile(out, doc.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s, %d bytes).\n", out, doc.Format, len(doc.Data))
			return nil
		},
	}
	renderCmd.Flags().String("patient-id", "", "Patient ID to render")
	renderCmd.Flags().String("out", "", "Output file (defaults to <name>.<format>)")
	renderCmd.Flags().Bool("pdf", false, "Convert the report to PDF")
	cmd.AddCommand(renderCmd)

	return cmd
}
