package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sheetsync/api/internal/theme"
)

type themeView struct {
	Slug    string        `json:"slug" yaml:"slug"`
	Name    string        `json:"name" yaml:"name"`
	Current bool          `json:"current" yaml:"current"`
	Colors  theme.Palette `json:"colors" yaml:"colors"`
}

func newThemesCommand(o *options) *cobra.Command {
	var set string

	cmd := &cobra.Command{
		Use:   "themes",
		Short: "List colour themes or pick one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if set != "" {
				th, ok := theme.Lookup(set)
				if !ok {
					return fmt.Errorf("unknown theme %q", set)
				}
				if err := SaveConfig(o.v, map[string]string{"theme": th.Slug}); err != nil {
					return err
				}
				th.Header().Fprintf(o.stdout, "Theme set to %s\n", th.Name)
				return nil
			}

			themes, err := o.remote().Themes(cmd.Context())
			if err != nil || len(themes) == 0 {
				if err != nil {
					fmt.Fprintf(o.stderr, "Could not reach %s, showing built-in themes\n", o.cfg.Server)
				}
				themes = theme.All()
			}

			views := make([]themeView, 0, len(themes))
			for _, t := range themes {
				views = append(views, themeView{
					Slug:    t.Slug,
					Name:    t.Name,
					Current: t.Slug == o.out.theme.Slug,
					Colors:  t.Colors,
				})
			}
			if o.out.format != FormatTable {
				return o.out.value(views)
			}

			for _, v := range views {
				marker := "  "
				if v.Current {
					marker = "* "
				}
				fmt.Fprint(o.stdout, marker)
				if th, ok := theme.Lookup(v.Slug); ok {
					th.Header().Fprintf(o.stdout, "%-16s", v.Slug)
				} else {
					fmt.Fprintf(o.stdout, "%-16s", v.Slug)
				}
				o.out.theme.Border().Fprintf(o.stdout, " %s (primary %s)\n", v.Name, v.Colors.Primary)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&set, "set", "", "Save this theme as the default")
	return cmd
}
