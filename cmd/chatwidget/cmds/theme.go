package cmds

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/chatwidget/pkg/session"
)

func NewThemeCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "theme [toggle|light|dark]",
		Short:     "Show or change the persisted theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"toggle", string(session.ThemeLight), string(session.ThemeDark)},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := Open(ctx, viper.GetViper())
			if err != nil {
				return err
			}
			defer func() { _ = env.Close() }()

			mgr := env.Manager(nil)
			switch {
			case len(args) == 0:
			case args[0] == "toggle":
				if _, err := mgr.ToggleTheme(ctx); err != nil {
					return err
				}
			default:
				t, err := session.ParseTheme(args[0])
				if err != nil {
					return err
				}
				if err := mgr.SetTheme(ctx, t); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), env.State.Theme())
			return err
		},
	}
}
