package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"sheetsync/api/internal/client"
	"sheetsync/api/internal/grid"
)

const defaultExportName = "table-data.xlsx"

func importFile(ctx context.Context, e *engine, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return e.Import(ctx, filepath.Base(path), f)
}

func newImportCommand(o *options) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the table with a spreadsheet or text file",
		Long: `Replace the table with the contents of an .xlsx, .xls or .txt file.

With --watch the file is imported again every time it is saved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			ctx := cmd.Context()

			e, err := o.openEngine(ctx, false, o.notifier())
			if err != nil {
				return err
			}
			if err := importFile(ctx, e, path); err != nil {
				e.stop()
				return err
			}
			if !watch {
				return e.close(ctx)
			}
			if err := e.Flush(ctx); err != nil {
				e.stop()
				return fmt.Errorf("save: %w", err)
			}

			w, err := newFileWatcher(path, o.stderr)
			if err != nil {
				e.stop()
				return err
			}
			sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()

			fmt.Fprintf(o.stdout, "Watching %s for changes (Ctrl+C to stop)\n", path)
			err = w.run(sigCtx, func() {
				if err := importFile(sigCtx, e, path); err != nil {
					w.logger.Printf("%v", err)
					return
				}
				if err := e.Flush(sigCtx); err != nil {
					w.logger.Printf("save: %v", err)
				}
			})
			if closeErr := e.close(context.WithoutCancel(ctx)); err == nil {
				err = closeErr
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-import whenever the file changes")
	return cmd
}

func newExportCommand(o *options) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Write the table to an .xlsx workbook",
		Long: `Write the table to an .xlsx workbook. The default file is table-data.xlsx;
use - for stdout.

With --remote the server renders the stored record instead of the local copy.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := defaultExportName
			if len(args) == 1 {
				name = args[0]
			}

			e, err := o.openEngine(cmd.Context(), false, o.notifier())
			if err != nil {
				return err
			}
			defer e.stop()

			var w io.Writer = o.stdout
			if name != "-" {
				f, err := os.Create(name)
				if err != nil {
					return fmt.Errorf("create %s: %w", name, err)
				}
				defer f.Close()
				w = f
			}

			if remote {
				id := e.RecordID()
				if id == "" {
					return errors.New("no table saved yet")
				}
				err = o.remote().Export(cmd.Context(), id, w)
			} else {
				err = e.Export(cmd.Context(), w)
			}
			if err != nil {
				return err
			}
			if name != "-" {
				fmt.Fprintf(o.stderr, "Wrote %s\n", name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&remote, "remote", false, "Download the server-rendered workbook")
	return cmd
}

type searchView struct {
	Query  string    `json:"query" yaml:"query"`
	Source string    `json:"source" yaml:"source"`
	Rows   []rowView `json:"rows" yaml:"rows"`
}

func newSearchCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "search <text>",
		Short: "Search rows on the server",
		Long:  "Ask the server which rows of the stored table contain text. Uses the search index when it is available.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.requireLogin(); err != nil {
				return err
			}
			ctx := cmd.Context()
			remote := o.remote()

			rec, err := remote.Latest(ctx)
			if errors.Is(err, client.ErrNoRecord) {
				return errors.New("no table saved yet")
			}
			if err != nil {
				return err
			}
			res, err := remote.Search(ctx, rec.ID, args[0])
			if err != nil {
				return err
			}

			data, _ := grid.ParseData(rec.Data)
			cols, ok := grid.ParseColumns(rec.Columns)
			if !ok || len(cols) == 0 {
				cols = grid.HeaderColumns(data)
			}

			view := searchView{Query: res.Query, Source: res.Source, Rows: make([]rowView, 0, len(res.Rows))}
			matched := grid.Grid{nil}
			var kept []int
			for _, idx := range res.Rows {
				if idx <= 0 || idx >= len(data) {
					continue
				}
				matched = append(matched, data[idx])
				kept = append(kept, idx)
			}
			view.Rows = gridRows(matched, kept)

			if o.out.format != FormatTable {
				return o.out.value(view)
			}
			tv := tableView{
				Columns: columnViews(cols),
				Rows:    view.Rows,
				Stats:   grid.Summarize(matched, cols),
			}
			if err := o.out.grid(tv); err != nil {
				return err
			}
			o.out.theme.Border().Fprintf(o.stdout, "source: %s\n", res.Source)
			return nil
		},
	}
}
