package cli

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"sheetsync/api/internal/client"
)

func newWatchCommand(o *options) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the table and print it on every remote change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			notices := make(chan client.Notice, 16)
			base := o.notifier()
			notifier := client.NotifierFunc(func(n client.Notice) {
				base.Notify(n)
				select {
				case notices <- n:
				default:
				}
			})

			e, err := o.openEngine(ctx, true, notifier)
			if err != nil {
				return err
			}
			defer e.stop()

			if err := o.showTable(ctx, e, filter); err != nil {
				return err
			}
			for {
				select {
				case <-ctx.Done():
					return nil
				case n := <-notices:
					if n != client.NoticeRemote {
						continue
					}
					fmt.Fprintln(o.stdout)
					if err := o.showTable(ctx, e, filter); err != nil {
						return err
					}
				}
			}
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Only show rows containing this text")
	return cmd
}
