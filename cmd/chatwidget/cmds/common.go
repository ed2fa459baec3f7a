// Package cmds holds the cobra commands of the chatwidget binary.
package cmds

import (
	"context"
	"io"
	"os"
	"time"

	clay "github.com/go-go-golems/clay/pkg"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/go-go-golems/chatwidget/pkg/api"
	"github.com/go-go-golems/chatwidget/pkg/config"
	"github.com/go-go-golems/chatwidget/pkg/events"
	"github.com/go-go-golems/chatwidget/pkg/logging"
	"github.com/go-go-golems/chatwidget/pkg/persistence/statestore"
	"github.com/go-go-golems/chatwidget/pkg/redisstream"
	"github.com/go-go-golems/chatwidget/pkg/render"
	"github.com/go-go-golems/chatwidget/pkg/session"
	"github.com/go-go-golems/chatwidget/pkg/ui"
)

// InitGlobals reads the configuration and sets up the global logger. The
// full-screen chat logs to a file unless --log-file says otherwise.
func InitGlobals(cmd *cobra.Command) error {
	v := viper.GetViper()
	if err := config.Init(v); err != nil {
		return err
	}
	s, err := config.Load(v)
	if err != nil {
		return err
	}
	if v.GetString("log-file") == "" && isChatCommand(cmd) && useTUI(s) {
		if err := os.MkdirAll(config.Dir(), 0o755); err != nil {
			return errors.Wrap(err, "create log directory")
		}
		v.Set("log-file", config.DefaultLogFile())
	}
	return clay.InitLogger()
}

func isChatCommand(cmd *cobra.Command) bool {
	return cmd == cmd.Root() || cmd.Name() == "chat"
}

func useTUI(s *config.Settings) bool {
	return !s.Plain && isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Env is everything a command needs to talk to the backend and the
// persisted widget state.
type Env struct {
	Settings *config.Settings
	Store    statestore.Store
	Client   *api.Client
	State    *session.State
	Bus      *events.Bus
}

func Open(ctx context.Context, v *viper.Viper) (*Env, error) {
	s, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	store, err := statestore.Open(s.Store)
	if err != nil {
		return nil, err
	}

	client, err := api.NewClient(s.BaseURL, api.WithTimeout(s.RequestTimeout), api.WithLogger(log.Logger))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	state, err := session.LoadState(ctx, store, time.Now())
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var busOpts []events.BusOption
	mirror, err := redisstream.MirrorOption(s.RedisStream)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if mirror != nil {
		busOpts = append(busOpts, mirror)
	}

	log.Debug().
		Str("base_url", client.BaseURL()).
		Str("store", s.Store).
		Str("session_id", state.SessionID()).
		Bool("mirror", mirror != nil).
		Msg("environment ready")

	return &Env{
		Settings: s,
		Store:    store,
		Client:   client,
		State:    state,
		Bus:      events.NewBus(logging.NewWatermill(log.Logger), busOpts...),
	}, nil
}

// Manager builds a session manager publishing to sink, or to the bus when
// sink is nil.
func (e *Env) Manager(sink events.Sink) *session.Manager {
	if sink == nil {
		sink = e.Bus
	}
	return session.NewManager(e.State, e.Client, sink,
		session.WithRenderDelay(e.Settings.RenderDelay),
		session.WithStatsInterval(e.Settings.StatsInterval),
		session.WithDefaultCategory(e.Settings.DefaultCategory),
	)
}

func (e *Env) Close() error {
	busErr := e.Bus.Close()
	if err := e.Store.Close(); err != nil {
		return errors.Wrap(err, "close store")
	}
	return errors.Wrap(busErr, "close event bus")
}

// outputProfile is the colour profile used for out; anything that is not a
// terminal gets plain ASCII.
func outputProfile(out io.Writer) termenv.Profile {
	f, ok := out.(*os.File)
	if !ok || !isTerminal(f) {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}

func outputWidth(out io.Writer) int {
	if f, ok := out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return render.DefaultWidth
}

func newPrinter(out io.Writer, theme session.Theme) (*ui.Printer, error) {
	md, err := render.NewMarkdown(render.StyleFor(string(theme), outputProfile(out)), outputWidth(out))
	if err != nil {
		return nil, err
	}
	return ui.NewPrinter(out, md), nil
}
