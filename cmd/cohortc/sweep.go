package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/opencohort/cohortc/internal/build"
	"github.com/opencohort/cohortc/internal/builders"
)

// sweepManifest lists the cohorts of one sweep run.
type sweepManifest struct {
	Cohorts []sweepEntry `yaml:"cohorts"`
}

type sweepEntry struct {
	File     string `yaml:"file"`
	CohortID int64  `yaml:"cohort_id"`
}

var sweepCmd = &cobra.Command{
	Use:   "sweep <manifest.yaml>",
	Short: "Build every cohort in a manifest",
	Long: `Sweep reads a YAML manifest listing cohort definition files with
their cohort ids and builds each one, appending all results into the
configured cohort table.

Each cohort gets its own build context; --parallel bounds how many build
concurrently; the write-backs into the cohort table run one at a time. A
file lock beside the manifest keeps two sweeps of the same manifest from
running at once.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parallel, _ := cmd.Flags().GetInt("parallel")
		if parallel < 1 {
			parallel = 1
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read manifest: %w", err)
		}
		var manifest sweepManifest
		if err := yaml.Unmarshal(data, &manifest); err != nil {
			return fmt.Errorf("failed to parse manifest: %w", err)
		}
		if len(manifest.Cohorts) == 0 {
			return fmt.Errorf("manifest lists no cohorts")
		}

		lock := flock.New(args[0] + ".lock")
		locked, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("failed to acquire sweep lock: %w", err)
		}
		if !locked {
			return fmt.Errorf("another sweep is running against %s", args[0])
		}
		defer lock.Unlock()

		baseDir := filepath.Dir(args[0])
		g, gctx := errgroup.WithContext(cmdContext())
		g.SetLimit(parallel)
		for _, entry := range manifest.Cohorts {
			g.Go(func() error {
				if err := sweepOne(gctx, baseDir, entry); err != nil {
					return fmt.Errorf("cohort %d (%s): %w", entry.CohortID, entry.File, err)
				}
				fmt.Printf("cohort %d done\n", entry.CohortID)
				return nil
			})
		}
		return g.Wait()
	},
}

func init() {
	sweepCmd.Flags().Int("parallel", 1, "number of cohorts to build concurrently")
	rootCmd.AddCommand(sweepCmd)
}

// sweepOne builds a single manifest entry on its own backend connection and
// build context.
func sweepOne(gctx context.Context, baseDir string, entry sweepEntry) error {
	path := entry.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	expr, _, err := loadExpression(path)
	if err != nil {
		return err
	}
	opts, err := buildOptions(fmt.Sprintf("%d", entry.CohortID), false)
	if err != nil {
		return err
	}
	be, err := openBackend()
	if err != nil {
		return err
	}
	defer be.Close()
	bctx, err := build.NewContext(gctx, be, opts, expr.ConceptSets)
	if err != nil {
		return err
	}
	defer bctx.Close(gctx)
	events, err := builders.BuildCohort(gctx, expr, bctx)
	if err != nil {
		return err
	}
	sweepWriteMu.Lock()
	defer sweepWriteMu.Unlock()
	return bctx.WriteCohortTable(gctx, events, true)
}

// sweepWriteMu serializes the append write-backs of concurrent sweep entries.
var sweepWriteMu sync.Mutex
