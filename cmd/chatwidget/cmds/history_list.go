package cmds

import (
	"context"

	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/fields"
	"github.com/go-go-golems/glazed/pkg/cmds/values"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"
	"github.com/spf13/viper"

	"github.com/go-go-golems/chatwidget/pkg/render"
	"github.com/go-go-golems/chatwidget/pkg/session"
)

type HistoryListCommand struct {
	*cmds.CommandDescription
}

type HistoryListSettings struct {
	Limit int `glazed:"limit"`
}

var _ cmds.GlazeCommand = &HistoryListCommand{}

func NewHistoryListCommand() (*HistoryListCommand, error) {
	glazedSection, err := settings.NewGlazedSection()
	if err != nil {
		return nil, err
	}
	commandSettingsSection, err := cli.NewCommandSettingsSection()
	if err != nil {
		return nil, err
	}

	desc := cmds.NewCommandDescription(
		"list",
		cmds.WithShort("Show the most recent exchanges, newest first"),
		cmds.WithFlags(
			fields.New(
				"limit",
				fields.TypeInteger,
				fields.WithDefault(session.DefaultRecentCount),
				fields.WithHelp("Number of exchanges to show"),
			),
		),
		cmds.WithSections(glazedSection, commandSettingsSection),
	)
	return &HistoryListCommand{CommandDescription: desc}, nil
}

func (c *HistoryListCommand) RunIntoGlazeProcessor(
	ctx context.Context,
	parsed *values.Values,
	gp middlewares.Processor,
) error {
	s := &HistoryListSettings{}
	if err := parsed.DecodeSectionInto(values.DefaultSlug, s); err != nil {
		return err
	}

	env, err := Open(ctx, viper.GetViper())
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	for i, p := range env.Manager(nil).RecentHistory(s.Limit) {
		var confidence interface{}
		if p.Confidence != nil {
			confidence = int(*p.Confidence*100 + 0.5)
		}
		row := types.NewRow(
			types.MRP("index", i+1),
			types.MRP("timestamp", p.Timestamp),
			types.MRP("category", p.Category),
			types.MRP("confidence", confidence),
			types.MRP("query", render.PlainText(p.Query)),
			types.MRP("response", render.PlainText(p.Response)),
		)
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}
