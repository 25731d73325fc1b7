package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"sheetsync/api/internal/grid"
)

func parseIndex(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, value)
	}
	return n, nil
}

// mutate opens an engine, applies fn and waits for the change to be saved.
func (o *options) mutate(ctx context.Context, fn func(e *engine) error) error {
	e, err := o.openEngine(ctx, false, o.notifier())
	if err != nil {
		return err
	}
	if err := fn(e); err != nil {
		e.stop()
		return err
	}
	if err := e.close(ctx); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

func (o *options) showTable(ctx context.Context, e *engine, filter string) error {
	view, err := e.Search(ctx, filter)
	if err != nil {
		return err
	}
	var rows []int
	if filter != "" {
		snap, err := e.Snapshot(ctx)
		if err != nil {
			return err
		}
		rows = grid.MatchingRows(snap.Data, filter)
	}
	return o.out.grid(newTableView(e.RecordID(), filter, view, rows))
}

func newShowCommand(o *options) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.openEngine(cmd.Context(), false, o.notifier())
			if err != nil {
				return err
			}
			defer e.stop()
			return o.showTable(cmd.Context(), e, filter)
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Only show rows containing this text")
	return cmd
}

func newColumnsCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "columns",
		Short: "List column descriptors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.openEngine(cmd.Context(), false, o.notifier())
			if err != nil {
				return err
			}
			defer e.stop()
			snap, err := e.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			return o.out.columns(columnViews(snap.Columns))
		},
	}
}

func newSetCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "set <row> <col> <value>",
		Short: "Set one cell",
		Long:  "Set one cell. Row 0 is the header row; numeric text is stored as a number.",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := parseIndex("row", args[0])
			if err != nil {
				return err
			}
			col, err := parseIndex("column", args[1])
			if err != nil {
				return err
			}
			value := strings.Join(args[2:], " ")
			return o.mutate(cmd.Context(), func(e *engine) error {
				ok, err := e.SetCell(cmd.Context(), row, col, value)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("cell (%d, %d) is outside the table", row, col)
				}
				return nil
			})
		},
	}
}

func newAddRowCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "add-row",
		Short: "Append an empty row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.mutate(cmd.Context(), func(e *engine) error {
				return e.AddRow(cmd.Context())
			})
		},
	}
}

func newAddColumnCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "add-column [name]",
		Short: "Append a column",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			var added grid.Column
			err := o.mutate(cmd.Context(), func(e *engine) error {
				col, err := e.AddColumn(cmd.Context(), name)
				added = col
				return err
			})
			if err != nil {
				return err
			}
			if o.out.format != FormatTable {
				return o.out.value(added)
			}
			fmt.Fprintf(o.stdout, "Added column %q (id %s)\n", added.Name, added.ID)
			return nil
		},
	}
}

// indexCommand builds a command that takes one index argument and applies
// a boolean engine operation to it.
func indexCommand(o *options, use, short, what string, op func(ctx context.Context, e *engine, index int) (bool, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(what, args[0])
			if err != nil {
				return err
			}
			return o.mutate(cmd.Context(), func(e *engine) error {
				ok, err := op(cmd.Context(), e, index)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("no %s at index %d", what, index)
				}
				return nil
			})
		},
	}
}

func newDeleteRowCommand(o *options) *cobra.Command {
	return indexCommand(o, "delete-row <row>", "Delete a data row", "row",
		func(ctx context.Context, e *engine, index int) (bool, error) {
			return e.DeleteRow(ctx, index)
		})
}

func newRemoveColumnCommand(o *options) *cobra.Command {
	return indexCommand(o, "remove-column <col>", "Remove a column and its cells", "column",
		func(ctx context.Context, e *engine, index int) (bool, error) {
			return e.RemoveColumn(ctx, index)
		})
}

func newVisibilityCommand(o *options, name string, visible bool) *cobra.Command {
	short := "Hide a column"
	if visible {
		short = "Show a hidden column"
	}
	return indexCommand(o, name+" <col>", short, "column",
		func(ctx context.Context, e *engine, index int) (bool, error) {
			return e.SetColumnVisible(ctx, index, visible)
		})
}

func newMoveColumnCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "move-column <from> <to>",
		Short: "Move a column to a new position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseIndex("column", args[0])
			if err != nil {
				return err
			}
			to, err := parseIndex("column", args[1])
			if err != nil {
				return err
			}
			return o.mutate(cmd.Context(), func(e *engine) error {
				ok, err := e.MoveColumn(cmd.Context(), from, to)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("cannot move column %d to %d", from, to)
				}
				return nil
			})
		},
	}
}

func newRenameColumnCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rename-column <col> <name>",
		Short: "Rename a column",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex("column", args[0])
			if err != nil {
				return err
			}
			name := strings.Join(args[1:], " ")
			return o.mutate(cmd.Context(), func(e *engine) error {
				ok, err := e.RenameColumn(cmd.Context(), index, name)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("no column at index %d", index)
				}
				return nil
			})
		},
	}
}

func newResizeCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "resize <col> <dx>",
		Short: "Change a column width by dx pixels",
		Long: `Change a column width by dx pixels. The width never drops below the
minimum column width. Put -- before a negative dx: sheetctl resize 2 -- -40`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex("column", args[0])
			if err != nil {
				return err
			}
			dx, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid width change %q", args[1])
			}
			width := 0
			err = o.mutate(cmd.Context(), func(e *engine) error {
				w, err := e.Resize(cmd.Context(), index, dx)
				if err != nil {
					return err
				}
				if w == 0 {
					return fmt.Errorf("no column at index %d", index)
				}
				width = w
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(o.stdout, "Column %d is now %dpx wide\n", index, width)
			return nil
		},
	}
}
