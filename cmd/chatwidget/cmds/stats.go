package cmds

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/chatwidget/pkg/periodic"
	"github.com/go-go-golems/chatwidget/pkg/render"
	"github.com/go-go-golems/chatwidget/pkg/session"
)

type StatsCommand struct {
	*cmds.CommandDescription
}

var _ cmds.GlazeCommand = &StatsCommand{}

func NewStatsGlazeCommand() (*StatsCommand, error) {
	glazedSection, err := settings.NewGlazedSection()
	if err != nil {
		return nil, err
	}
	commandSettingsSection, err := cli.NewCommandSettingsSection()
	if err != nil {
		return nil, err
	}

	desc := cmds.NewCommandDescription(
		"stats",
		cmds.WithShort("Show usage analytics from the backend"),
		cmds.WithLong("Show usage analytics from the backend as a single row. "+
			"Sample data is reported with source=offline when the backend is unreachable."),
		cmds.WithSections(glazedSection, commandSettingsSection),
	)
	return &StatsCommand{CommandDescription: desc}, nil
}

func (c *StatsCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	_ *values.Values,
	gp middlewares.Processor,
) error {
	env, err := Open(ctx, viper.GetViper())
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	st := env.Manager(nil).RefreshStatistics(ctx, false)
	if st.Fallback {
		log.Warn().Err(st.Err).Msg("statistics unavailable, showing sample data")
	}
	return gp.AddRow(ctx, statsRow(st))
}

func statsRow(st session.Statistics) types.Row {
	m := st.Metrics
	source := "live"
	if st.Fallback {
		source = "offline"
	}
	return types.NewRow(
		types.MRP("total_queries", m.TotalQueries),
		types.MRP("unique_users", m.UniqueUsers),
		types.MRP("accuracy", m.Accuracy),
		types.MRP("recent_activity", m.RecentActivity),
		types.MRP("today_activity", m.TodayActivity),
		types.MRP("success_rate", m.SuccessRate),
		types.MRP("success_level", string(m.SuccessLevel)),
		types.MRP("avg_confidence", m.AvgConfidence),
		types.MRP("confidence_level", string(m.ConfidenceLevel)),
		types.MRP("source", source),
	)
}

// NewStatsCommand is the glazed stats command with a "watch" subcommand for
// a live, refreshing view.
func NewStatsCommand() (*cobra.Command, error) {
	statsCmd, err := NewStatsGlazeCommand()
	if err != nil {
		return nil, err
	}
	cmd, err := cli.BuildCobraCommand(statsCmd, cli.WithCobraMiddlewaresFunc(glazedMiddlewares))
	if err != nil {
		return nil, err
	}
	cmd.AddCommand(newStatsWatchCommand())
	return cmd, nil
}

func newStatsWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Refresh the analytics every --stats-interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := Open(ctx, viper.GetViper())
			if err != nil {
				return err
			}
			defer func() { _ = env.Close() }()

			mgr := env.Manager(nil)
			out := cmd.OutOrStdout()
			printStats(ctx, mgr, out)
			return periodic.Run(ctx, env.Settings.StatsInterval, func(ctx context.Context) error {
				_, _ = fmt.Fprintf(out, "\n-- %s --\n", time.Now().Format(time.TimeOnly))
				printStats(ctx, mgr, out)
				return nil
			}, func(err error) {
				log.Warn().Err(err).Msg("stats refresh failed")
			})
		},
	}
}

func printStats(ctx context.Context, mgr *session.Manager, out io.Writer) {
	st := mgr.RefreshStatistics(ctx, false)
	for _, l := range render.MetricsLines(st.Metrics) {
		_, _ = fmt.Fprintln(out, l)
	}
	if st.Fallback {
		_, _ = fmt.Fprintf(out, "(offline sample data: %v)\n", st.Err)
	}
}
