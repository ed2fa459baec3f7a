package cmds

import (
	clay "github.com/go-go-golems/clay/pkg"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/chatwidget/pkg/config"
)

// NewRootCommand builds the chatwidget command tree. Running it without a
// subcommand starts a chat.
func NewRootCommand() (*cobra.Command, error) {
	chatCmd := NewChatCommand()

	rootCmd := &cobra.Command{
		Use:          "chatwidget",
		Short:        "chatwidget is a terminal client for the student assistant chat backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// flags are parsed by now, so the logger can honour --log-level and co
			return InitGlobals(cmd)
		},
		Args: cobra.NoArgs,
		RunE: chatCmd.RunE,
	}
	config.AddFlags(rootCmd.PersistentFlags())
	if err := clay.InitViper(config.AppName, rootCmd); err != nil {
		return nil, err
	}
	if err := clay.InitLogger(); err != nil {
		return nil, err
	}

	historyCmd, err := NewHistoryCommand()
	if err != nil {
		return nil, err
	}
	statsCmd, err := NewStatsCommand()
	if err != nil {
		return nil, err
	}

	rootCmd.AddCommand(
		chatCmd,
		NewSendCommand(),
		historyCmd,
		statsCmd,
		NewThemeCommand(),
		NewHealthCommand(),
		NewEventsCommand(),
	)
	return rootCmd, nil
}
