package main

import (
	"context"
	"fmt"
	"io"

	"github.com/ddddddO/gtree"
	"github.com/spf13/cobra"

	"github.com/yungbote/degreeplan-backend/internal/app"
	types "github.com/yungbote/degreeplan-backend/internal/domain/planning"
)

var (
	showCourse   string
	showExpanded []string

	exportOut string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the credit aggregate of a course of study as a tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			view, err := a.Planning.Aggregate(ctx, showCourse, showExpanded)
			if err != nil {
				return err
			}
			if view == nil {
				return fmt.Errorf("course %q has no root node", showCourse)
			}
			return printAggregate(cmd.OutOrStdout(), view)
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a consistent copy of the SQLite store",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.DB.ExportTo(ctx, exportOut); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", exportOut)
			return nil
		})
	},
}

func printAggregate(w io.Writer, view *types.AggregateNode) error {
	root := gtree.NewRoot(aggregateLabel(view))
	addAggregate(root, view)
	return gtree.OutputProgrammably(w, root)
}

func addAggregate(parent *gtree.Node, view *types.AggregateNode) {
	for _, e := range view.Entries {
		parent.Add(fmt.Sprintf("[%s] %s %s (%d CP)", e.Entry.State, e.Entry.ActivityID, e.Entry.Name, e.Entry.Credits))
	}
	for i := range view.Children {
		child := &view.Children[i]
		if !child.HasContents {
			continue
		}
		addAggregate(parent.Add(aggregateLabel(child)), child)
	}
}

func aggregateLabel(view *types.AggregateNode) string {
	label := fmt.Sprintf("%s: %d CP", view.Node.Name, view.ActualCredits)
	if view.PropagatedCredits != view.ActualCredits {
		label += fmt.Sprintf(" (counts %d)", view.PropagatedCredits)
	}
	if maxCredits := view.Node.MaxCredits; maxCredits != nil {
		label += fmt.Sprintf(" / %d-%d CP", view.Node.MinCredits, *maxCredits)
	} else if view.Node.MinCredits > 0 {
		label += fmt.Sprintf(" / min %d CP", view.Node.MinCredits)
	}
	return label + fmt.Sprintf(", %d modules", view.ModuleCount)
}

func init() {
	showCmd.Flags().StringVar(&showCourse, "course", "", "course of study")
	showCmd.Flags().StringSliceVar(&showExpanded, "expand", nil, "node urls to show even without contents")
	_ = showCmd.MarkFlagRequired("course")

	exportCmd.Flags().StringVar(&exportOut, "out", "", "destination file")
	_ = exportCmd.MarkFlagRequired("out")
}
