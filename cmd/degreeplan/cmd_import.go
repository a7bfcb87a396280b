package main

import (
	"context"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/degreeplan-backend/internal/app"
	types "github.com/yungbote/degreeplan-backend/internal/domain/planning"
	"github.com/yungbote/degreeplan-backend/internal/ingestion/snapshot"
	"github.com/yungbote/degreeplan-backend/internal/modules/planning"
)

var (
	importCourse   string
	importSemester string

	reconcileCourse string
	reconcileName   string
)

var importSnapshotCmd = &cobra.Command{
	Use:   "import-snapshot FILE...",
	Short: "Import registration snapshots (brotli when the name ends in .br)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sem, err := types.ParseSemester(importSemester)
		if err != nil {
			return err
		}
		snaps, err := decodeSnapshots(cmd.Context(), args)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			for i, snap := range snaps {
				stats, err := a.Planning.ImportSnapshot(ctx, planning.ImportSnapshotInput{
					CourseOfStudy: importCourse,
					SemesterTag:   sem,
					Snapshot:      snap,
				})
				if err != nil {
					return fmt.Errorf("%s: %w", args[i], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d nodes, %d entries, %d skipped\n", args[i], stats.Nodes, stats.Entries, stats.SkippedEntries)
			}
			return nil
		})
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile FILE",
	Short: "Reconcile an exam results document against the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := snapshot.DecodeResultsFile(args[0], reconcileName)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			failed, err := a.Planning.ReconcileResults(ctx, reconcileCourse, in)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d unplaced\n", len(failed))
			for _, f := range failed {
				fmt.Fprintf(out, "  %s %s at %s\n", f.Entry.ActivityID, f.Entry.Name, f.Entry.NodeURL)
			}
			return nil
		})
	},
}

// decodeSnapshots decodes every file concurrently and keeps argument order.
func decodeSnapshots(ctx context.Context, paths []string) ([]types.Snapshot, error) {
	out := make([]types.Snapshot, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			snap, err := snapshot.DecodeFile(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			out[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func init() {
	importSnapshotCmd.Flags().StringVar(&importCourse, "course", "", "course of study")
	importSnapshotCmd.Flags().StringVar(&importSemester, "semester", "", "semester the snapshot was taken in (summer|winter)")
	_ = importSnapshotCmd.MarkFlagRequired("course")
	_ = importSnapshotCmd.MarkFlagRequired("semester")

	reconcileCmd.Flags().StringVar(&reconcileCourse, "course", "", "course of study")
	reconcileCmd.Flags().StringVar(&reconcileName, "name", "", "display name of the course, overrides the document")
	_ = reconcileCmd.MarkFlagRequired("course")
}
