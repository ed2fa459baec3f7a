package cmds

import (
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/sources"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/chatwidget/pkg/config"
)

// glazedMiddlewares resolves glazed command fields from flags, arguments and
// CHATWIDGET_* variables, falling back to the declared defaults.
func glazedMiddlewares(
	_ *values.Values,
	cmd *cobra.Command,
	args []string,
) ([]sources.Middleware, error) {
	return []sources.Middleware{
		sources.FromCobra(cmd),
		sources.FromArgs(args),
		sources.FromEnv(config.EnvPrefix,
			fields.WithSource("env"),
		),
		sources.FromDefaults(),
	}, nil
}
