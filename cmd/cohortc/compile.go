package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/builders"
	"github.com/opencohort/cohortc/internal/config"
	"github.com/opencohort/cohortc/internal/dialect"
)

var compileCmd = &cobra.Command{
	Use:   "compile <cohort.json>",
	Short: "Compile a cohort definition to SQL",
	Long: `Compile a cohort definition and print the generated SQL for the
configured dialect without touching a backend. Compilation runs with
staging disabled so the full pipeline renders as one composed statement.

With --watch the file is recompiled whenever it changes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		watch, _ := cmd.Flags().GetBool("watch")
		dialectName, _ := cmd.Flags().GetString("dialect")
		if dialectName == "" {
			dialectName = config.GetString("backend")
		}
		if watch {
			return watchCompile(args[0], dialectName)
		}
		sql, err := compileFile(args[0], dialectName)
		if err != nil {
			return err
		}
		fmt.Println(sql)
		return nil
	},
}

func init() {
	compileCmd.Flags().String("dialect", "", "target dialect (defaults to the configured backend)")
	compileCmd.Flags().Bool("watch", false, "recompile on file change")
	rootCmd.AddCommand(compileCmd)
}

// compileFile renders the full pipeline SQL without a live backend: staging
// is disabled and the codeset relation stays inline.
func compileFile(path, dialectName string) (string, error) {
	expr, _, err := loadExpression(path)
	if err != nil {
		return "", err
	}
	d, err := dialect.ForName(dialectName)
	if err != nil {
		return "", err
	}
	opts, err := buildOptions("", false)
	if err != nil {
		return "", err
	}
	opts.MaterializeStages = false
	opts.MaterializeCodesets = false
	ctx := cmdContext()
	bctx, err := build.NewContext(ctx, planOnlyBackend{d: d}, opts, expr.ConceptSets)
	if err != nil {
		return "", err
	}
	defer bctx.Close(ctx)
	rel, err := builders.BuildCohort(ctx, expr, bctx)
	if err != nil {
		return "", err
	}
	return rel.SQL(), nil
}

func watchCompile(path, dialectName string) error {
	emit := func() {
		sql, err := compileFile(path, dialectName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "compile failed: %v\n", err)
			return
		}
		fmt.Println(sql)
	}
	emit()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Close()
	// Watch the directory: editors replace files on save, which drops
	// per-file watches.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	target := filepath.Clean(path)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				fmt.Fprintf(os.Stderr, "-- recompiling %s\n", path)
				emit()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		}
	}
}

// planOnlyBackend satisfies the backend contract for compile-only runs,
// where no statement should ever execute.
type planOnlyBackend struct {
	d dialect.Dialect
}

func (b planOnlyBackend) Dialect() dialect.Dialect { return b.d }

func (planOnlyBackend) HasTable(ctx context.Context, schema, name string) (bool, error) {
	return true, nil
}

func (planOnlyBackend) CreateTableAs(ctx context.Context, schema, name, selectSQL string, temp bool) error {
	return fmt.Errorf("compile-only backend cannot create tables")
}

func (planOnlyBackend) DropTable(ctx context.Context, schema, name string, force bool) error {
	return nil
}

func (planOnlyBackend) Exec(ctx context.Context, stmt string) error {
	return fmt.Errorf("compile-only backend cannot execute statements")
}

func (planOnlyBackend) QueryCount(ctx context.Context, selectSQL string) (int64, error) {
	return 0, fmt.Errorf("compile-only backend cannot run queries")
}
