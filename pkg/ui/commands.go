// Package ui is the terminal front end of the chat widget: a bubbletea screen
// for terminals and a line REPL for everything else. Both share the slash
// commands below.
package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/go-go-golems/chatwidget/pkg/render"
	"github.com/go-go-golems/chatwidget/pkg/session"
)

// Command is a parsed "/name arg" line.
type Command struct {
	Name string
	Arg  string
}

// ParseCommand reports ok=false for lines that are chat messages.
func ParseCommand(line string) (Command, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") || len(line) == 1 {
		return Command{}, false
	}
	name, arg, _ := strings.Cut(line[1:], " ")
	return Command{Name: strings.ToLower(name), Arg: strings.TrimSpace(arg)}, true
}

// Pick parses Arg as a 1-based index into a list of n items.
func (c Command) Pick(n int) (int, error) {
	if n == 0 {
		return 0, errors.Errorf("nothing to pick for /%s yet", c.Name)
	}
	i, err := strconv.Atoi(c.Arg)
	if err != nil || i < 1 || i > n {
		return 0, errors.Errorf("usage: /%s N with N between 1 and %d", c.Name, n)
	}
	return i - 1, nil
}

const HelpText = `Commands:
  /quick N        send quick action N
  /suggest N      send suggestion N
  /history        show the last 10 conversations
  /export [path]  export history (.json, .yaml or .csv)
  /clear          clear chat history
  /theme          toggle light/dark theme
  /stats          refresh analytics
  /copy           copy the last reply to the clipboard
  /help           show this help
  /quit           leave`

// HistoryLines formats recent conversations, newest first.
func HistoryLines(previews []session.Preview) []string {
	if len(previews) == 0 {
		return []string{"No conversation history yet. Start chatting to see history here!"}
	}
	var out []string
	for i, p := range previews {
		meta := p.Timestamp
		if p.Confidence != nil {
			meta += fmt.Sprintf(" • %d%%", int(*p.Confidence*100+0.5))
		}
		if p.Category != "" {
			meta += " • " + p.Category
		}
		out = append(out,
			fmt.Sprintf("%2d. Q: %s", i+1, render.PlainText(p.Query)),
			"    A: "+render.PlainText(p.Response),
			"    "+meta,
		)
	}
	return out
}

// ExportPath resolves the /export argument, defaulting to the standard file
// name in the current directory.
func ExportPath(arg, sessionID string) string {
	if arg != "" {
		return arg
	}
	return session.ExportFilename(sessionID, session.FormatJSON)
}
