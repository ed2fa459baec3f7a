package cmds

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func NewHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := Open(ctx, viper.GetViper())
			if err != nil {
				return err
			}
			defer func() { _ = env.Close() }()

			h, err := env.Client.Health(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s: %s\n", env.Client.BaseURL(), h.Status)
			for _, kv := range [][2]string{
				{"service", h.Service},
				{"version", h.Version},
				{"database", h.Database},
				{"timestamp", h.Timestamp},
			} {
				if kv[1] != "" {
					_, _ = fmt.Fprintf(out, "  %-10s %s\n", kv[0], kv[1])
				}
			}
			return nil
		},
	}
}
