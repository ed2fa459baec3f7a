package cmds

import (
	"context"
	"io"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/chatwidget/pkg/events"
	"github.com/go-go-golems/chatwidget/pkg/ui"
)

func NewChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: "Start an interactive chat session. A full-screen interface is used on a terminal; " +
			"with --plain, or when input is piped, a line-based prompt is used instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := Open(ctx, viper.GetViper())
			if err != nil {
				return err
			}
			defer func() { _ = env.Close() }()

			if useTUI(env.Settings) {
				return runTUI(ctx, env)
			}
			return runPlain(ctx, env, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runTUI(ctx context.Context, env *Env) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	evs, err := env.Bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	mgr := env.Manager(env.Bus)
	model, err := ui.New(ctx, mgr, evs, ui.Options{Profile: termenv.EnvColorProfile()})
	if err != nil {
		return err
	}
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		mgr.Welcome(gctx)
		return mgr.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return errors.Wrap(err, "run chat ui")
		}
		return nil
	})
	return g.Wait()
}

func runPlain(ctx context.Context, env *Env, in io.Reader, out io.Writer) error {
	printer, err := newPrinter(out, env.State.Theme())
	if err != nil {
		return err
	}
	mgr := env.Manager(events.Fanout(env.Bus, printer))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	mgr.Welcome(ctx)
	pollDone := make(chan error, 1)
	go func() { pollDone <- mgr.Run(ctx) }()

	// A blocked read cannot be interrupted, so cancellation does not wait for it.
	replDone := make(chan error, 1)
	go func() {
		replDone <- ui.RunPlain(ctx, mgr, printer, in, ui.Options{
			Profile:   outputProfile(out),
			Clipboard: clipboard.WriteAll,
		})
	}()

	select {
	case err = <-replDone:
	case <-ctx.Done():
	}
	cancel()
	if pollErr := <-pollDone; err == nil {
		err = pollErr
	}
	return err
}
