package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"sheetsync/api/internal/edit"
)

var replCommands = []string{
	"select", "type", "commit", "blur", "cancel",
	"show", "columns", "add-row", "add-column", "delete-row",
	"hide", "unhide", "status", "help", "exit", "quit",
}

// repl drives one engine from line commands. While a cell is being edited,
// any line that is not a command is typed into the cell and committed.
type repl struct {
	o     *options
	e     *engine
	w     io.Writer
	state cursor
}

// cursor mirrors the engine edit session for the prompt.
type cursor struct {
	editing bool
	row     int
	col     int
	buffer  string
}

func (r *repl) prompt() string {
	if r.state.editing {
		return fmt.Sprintf("sheet[%d,%d]> ", r.state.row, r.state.col)
	}
	return "sheet> "
}

func (r *repl) apply(ctx context.Context, ev edit.Event) error {
	st, err := r.e.Edit(ctx, ev)
	if err != nil {
		return err
	}
	r.state = cursor{editing: st.State == edit.Editing, row: st.Row, col: st.Col, buffer: st.Buffer}
	if r.state.editing {
		fmt.Fprintf(r.w, "editing (%d, %d): %q\n", st.Row, st.Col, st.Buffer)
	}
	return nil
}

// exec runs one line. quit reports that the session should end.
func (r *repl) exec(ctx context.Context, line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]
	rest := strings.TrimSpace(strings.TrimPrefix(line, name))

	switch name {
	case "exit", "quit":
		return true, nil
	case "help":
		r.printHelp()
	case "status":
		fmt.Fprintf(r.w, "%s, record %s\n", r.e.Status(), orNone(r.e.RecordID()))
	case "show":
		return false, r.o.showTable(ctx, r.e, rest)
	case "columns":
		snap, err := r.e.Snapshot(ctx)
		if err != nil {
			return false, err
		}
		return false, r.o.out.columns(columnViews(snap.Columns))
	case "select":
		if len(args) != 2 {
			return false, errors.New("usage: select <row> <col>")
		}
		row, err := parseIndex("row", args[0])
		if err != nil {
			return false, err
		}
		col, err := parseIndex("column", args[1])
		if err != nil {
			return false, err
		}
		snap, err := r.e.Snapshot(ctx)
		if err != nil {
			return false, err
		}
		if _, ok := snap.Data.At(row, col); !ok {
			return false, fmt.Errorf("cell (%d, %d) is outside the table", row, col)
		}
		if err := r.apply(ctx, edit.SelectCell(row, col)); err != nil {
			return false, err
		}
	case "type":
		if !r.state.editing {
			return false, errors.New("no cell selected")
		}
		return false, r.apply(ctx, edit.Type(rest))
	case "commit":
		return false, r.finish(ctx, edit.Commit)
	case "blur":
		return false, r.finish(ctx, edit.Blur)
	case "cancel":
		return false, r.finish(ctx, edit.Cancel)
	case "add-row":
		return false, r.e.AddRow(ctx)
	case "add-column":
		col, err := r.e.AddColumn(ctx, rest)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(r.w, "Added column %q (id %s)\n", col.Name, col.ID)
	case "delete-row", "hide", "unhide":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: %s <index>", name)
		}
		index, err := parseIndex("index", args[0])
		if err != nil {
			return false, err
		}
		var ok bool
		switch name {
		case "delete-row":
			ok, err = r.e.DeleteRow(ctx, index)
		default:
			ok, err = r.e.SetColumnVisible(ctx, index, name == "unhide")
		}
		if err != nil {
			return false, err
		}
		if !ok {
			return false, fmt.Errorf("nothing at index %d", index)
		}
	default:
		if !r.state.editing {
			return false, fmt.Errorf("unknown command %q, type 'help'", name)
		}
		if err := r.apply(ctx, edit.Type(line)); err != nil {
			return false, err
		}
		return false, r.finish(ctx, edit.Commit)
	}
	return false, nil
}

// leave ends the session. A cell still being edited loses focus, which
// commits its pending text.
func (r *repl) leave(ctx context.Context) error {
	if !r.state.editing {
		return nil
	}
	return r.finish(ctx, edit.Blur)
}

func (r *repl) finish(ctx context.Context, kind edit.Kind) error {
	if !r.state.editing {
		return errors.New("no cell selected")
	}
	return r.apply(ctx, edit.Event{Kind: kind})
}

func (r *repl) printHelp() {
	fmt.Fprint(r.w, `Commands:
  select <row> <col>   start editing a cell
  type <text>          replace the pending text
  commit | blur        save the pending text
  cancel               discard the pending text
  show [filter]        print the table
  columns              list columns
  add-row              append a row
  add-column [name]    append a column
  delete-row <row>     delete a data row
  hide | unhide <col>  change column visibility
  status               connection state
  exit                 leave

While a cell is selected, any other line is written into it.
`)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func newEditCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Interactive editing session with live updates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := o.openEngine(ctx, true, o.notifier())
			if err != nil {
				return err
			}

			histFile := filepath.Join(ConfigDir(), "history")
			_ = os.MkdirAll(filepath.Dir(histFile), 0o700)

			items := make([]readline.PrefixCompleterInterface, 0, len(replCommands))
			for _, c := range replCommands {
				items = append(items, readline.PcItem(c))
			}
			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "sheet> ",
				HistoryFile:     histFile,
				AutoComplete:    readline.NewPrefixCompleter(items...),
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
				Stdin:           o.stdin,
				Stdout:          o.stdout,
				Stderr:          o.stderr,
			})
			if err != nil {
				e.stop()
				return err
			}
			defer rl.Close()

			r := &repl{o: o, e: e, w: o.stdout}
			fmt.Fprintln(o.stdout, "Type 'help' for commands, 'exit' to quit.")
			if err := o.showTable(ctx, e, ""); err != nil {
				fmt.Fprintf(o.stderr, "Error: %s\n", err)
			}

			for {
				line, err := rl.Readline()
				if err != nil {
					break
				}
				quit, err := r.exec(ctx, line)
				if err != nil {
					fmt.Fprintf(o.stderr, "Error: %s\n", err)
				}
				if quit {
					break
				}
				rl.SetPrompt(r.prompt())
			}
			if err := r.leave(ctx); err != nil {
				fmt.Fprintf(o.stderr, "Error: %s\n", err)
			}
			return e.close(ctx)
		},
	}
}
