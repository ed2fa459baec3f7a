package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/go-go-golems/chatwidget/pkg/events"
	"github.com/go-go-golems/chatwidget/pkg/render"
	"github.com/go-go-golems/chatwidget/pkg/session"
)

// Printer is an events.Sink that writes conversation events as plain lines.
// Sidebar refreshes are not printed; the REPL lists them on request.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
	md  *render.Markdown
}

var _ events.Sink = &Printer{}

func NewPrinter(out io.Writer, md *render.Markdown) *Printer {
	return &Printer{out: out, md: md}
}

func (p *Printer) SetMarkdown(md *render.Markdown) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.md = md
}

func (p *Printer) Markdown() *render.Markdown {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.md
}

func (p *Printer) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	switch ev.Kind {
	case events.KindBotMessage:
		_, err = fmt.Fprintf(p.out, "\nAI Assistant:\n%s\n", p.md.Render(ev.Text))
		if footer := render.Footer(ev.Confidence, ev.Category); footer != "" && err == nil {
			_, err = fmt.Fprintln(p.out, footer)
		}
	case events.KindError:
		_, err = fmt.Fprintf(p.out, "\n%s\n", p.md.Render(ev.Text))
	case events.KindTyping:
		if ev.Typing {
			_, err = fmt.Fprintln(p.out, "AI Assistant is typing...")
		}
	case events.KindNotification:
		_, err = fmt.Fprintf(p.out, "» %s\n", ev.Text)
	}
	return err
}

func (p *Printer) Println(lines ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, l := range lines {
		_, _ = fmt.Fprintln(p.out, l)
	}
}

func (p *Printer) Prompt(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprint(p.out, s)
}

// RunPlain reads lines from in until EOF, /quit or ctx cancellation. The
// manager's sink is expected to include printer.
func RunPlain(ctx context.Context, mgr *session.Manager, printer *Printer, in io.Reader, opts Options) error {
	r := &repl{
		mgr:     mgr,
		printer: printer,
		scanner: bufio.NewScanner(in),
		opts:    opts,
	}
	printer.Println("Type a message, or /help for commands.")
	for {
		if ctx.Err() != nil {
			return nil
		}
		printer.Prompt("\n› ")
		if !r.scanner.Scan() {
			printer.Println("")
			return errors.Wrap(r.scanner.Err(), "read input")
		}
		if done := r.handle(ctx, r.scanner.Text()); done {
			return nil
		}
	}
}

type repl struct {
	mgr     *session.Manager
	printer *Printer
	scanner *bufio.Scanner
	opts    Options
}

func (r *repl) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	c, ok := ParseCommand(line)
	if !ok {
		r.send(ctx, line)
		return false
	}

	switch c.Name {
	case "quit", "exit", "q":
		return true

	case "help":
		r.printer.Println(HelpText)

	case "quick":
		actions := r.mgr.QuickActions()
		if c.Arg == "" {
			for i, a := range actions {
				r.printer.Println(fmt.Sprintf("%d. %s %s", i+1, a.Icon, a.Text))
			}
			return false
		}
		i, err := c.Pick(len(actions))
		if err != nil {
			r.printer.Println(err.Error())
			return false
		}
		r.send(ctx, actions[i].Text)

	case "suggest":
		suggestions := r.mgr.Suggestions()
		if c.Arg == "" {
			for i, s := range suggestions {
				r.printer.Println(fmt.Sprintf("%d. %s", i+1, s))
			}
			return false
		}
		i, err := c.Pick(len(suggestions))
		if err != nil {
			r.printer.Println(err.Error())
			return false
		}
		r.send(ctx, suggestions[i])

	case "history":
		r.printer.Println(HistoryLines(r.mgr.RecentHistory(session.DefaultRecentCount))...)

	case "export":
		path := ExportPath(c.Arg, r.mgr.State().SessionID())
		if err := session.SaveExport(path, r.mgr.Export(), session.FormatFromPath(path)); err != nil {
			r.printer.Println("export failed: " + err.Error())
			return false
		}
		r.mgr.Notify(ctx, "💾 Chat exported successfully!")
		r.printer.Println("Exported to " + path)

	case "clear":
		if r.mgr.State().Len() == 0 {
			r.printer.Println("No conversation history yet.")
			return false
		}
		if _, err := r.mgr.ClearHistory(ctx, session.ConfirmFunc(r.confirm)); err != nil {
			r.printer.Println(err.Error())
		}

	case "theme":
		t, err := r.mgr.ToggleTheme(ctx)
		if err != nil {
			r.printer.Println(err.Error())
			return false
		}
		cur := r.printer.Markdown()
		if md, err := render.NewMarkdown(render.StyleFor(string(t), r.opts.Profile), cur.Width()); err == nil {
			r.printer.SetMarkdown(md)
		}

	case "stats":
		st := r.mgr.RefreshStatistics(ctx, true)
		r.printer.Println(render.MetricsLines(st.Metrics)...)

	case "copy":
		entries := r.mgr.State().Entries()
		if len(entries) == 0 {
			r.printer.Println("no reply to copy yet")
			return false
		}
		write := r.opts.Clipboard
		if write == nil {
			r.printer.Println("clipboard not available")
			return false
		}
		if err := write(entries[len(entries)-1].Response); err != nil {
			r.printer.Println("copy failed: " + err.Error())
			return false
		}
		r.printer.Println("📋 Copied last reply to clipboard")

	default:
		r.printer.Println("unknown command /" + c.Name + ", try /help")
	}
	return false
}

func (r *repl) send(ctx context.Context, text string) {
	// Failures are already reported through the connection error event.
	_, _ = r.mgr.Send(ctx, text)
}

func (r *repl) confirm(_ context.Context, prompt string) (bool, error) {
	r.printer.Prompt(prompt + " (y/n) ")
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return false, err
		}
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(r.scanner.Text()))
	return answer == "y" || answer == "yes", nil
}
