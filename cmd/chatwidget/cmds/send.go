package cmds

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/chatwidget/pkg/events"
)

func NewSendCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "send MESSAGE...",
		Short: "Send a single message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := Open(ctx, viper.GetViper())
			if err != nil {
				return err
			}
			defer func() { _ = env.Close() }()

			out := cmd.OutOrStdout()
			var sink events.Sink = env.Bus
			if !asJSON {
				printer, err := newPrinter(out, env.State.Theme())
				if err != nil {
					return err
				}
				sink = events.Fanout(env.Bus, printer)
			}

			ex, err := env.Manager(sink).Send(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if !asJSON {
				return nil
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return errors.Wrap(enc.Encode(ex.Entry), "encode reply")
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the recorded exchange as JSON")
	return cmd
}
