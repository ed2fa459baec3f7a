package cmds

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/huh"
	"github.com/go-go-golems/glazed/pkg/cli"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	input "github.com/tcnksm/go-input"

	"github.com/go-go-golems/chatwidget/pkg/session"
)

func NewHistoryCommand() (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect, export or clear the conversation history",
	}
	listCmd, err := NewHistoryListCommand()
	if err != nil {
		return nil, err
	}
	cobraListCmd, err := cli.BuildCobraCommand(listCmd, cli.WithCobraMiddlewaresFunc(glazedMiddlewares))
	if err != nil {
		return nil, err
	}
	cmd.AddCommand(cobraListCmd, newHistoryExportCommand(), newHistoryClearCommand())
	return cmd, nil
}

func newHistoryExportCommand() *cobra.Command {
	var (
		format      string
		output      string
		toClipboard bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the conversation history",
		Long: "Export the conversation history as json, yaml or csv. Without --output the file is " +
			"written to the current directory; --output - writes to stdout.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := Open(cmd.Context(), viper.GetViper())
			if err != nil {
				return err
			}
			defer func() { _ = env.Close() }()

			f, err := exportFormat(format, output)
			if err != nil {
				return err
			}
			doc := env.Manager(nil).Export()

			switch {
			case toClipboard:
				var buf bytes.Buffer
				if err := session.WriteExport(&buf, doc, f); err != nil {
					return err
				}
				if err := clipboard.WriteAll(buf.String()); err != nil {
					return errors.Wrap(err, "copy export to clipboard")
				}
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Copied %d conversations to the clipboard\n", doc.TotalConversations)
				return nil
			case output == "-":
				return session.WriteExport(cmd.OutOrStdout(), doc, f)
			default:
				path := output
				if path == "" {
					path = session.ExportFilename(doc.SessionID, f)
				}
				if err := session.SaveExport(path, doc, f); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d conversations to %s\n", doc.TotalConversations, path)
				return nil
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "json, yaml or csv (default from --output extension, else json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout")
	cmd.Flags().BoolVar(&toClipboard, "clipboard", false, "copy the export to the clipboard instead of writing a file")
	return cmd
}

// exportFormat resolves --format, falling back to the --output extension.
func exportFormat(format, output string) (session.ExportFormat, error) {
	if format == "" && output != "" && output != "-" {
		return session.FormatFromPath(output), nil
	}
	return session.ParseExportFormat(format)
}

func newHistoryClearCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the conversation history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := Open(cmd.Context(), viper.GetViper())
			if err != nil {
				return err
			}
			defer func() { _ = env.Close() }()

			if env.State.Len() == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No conversation history yet.")
				return nil
			}
			var c session.Confirmer = session.ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
			if !yes {
				c = confirmer(cmd.InOrStdin(), cmd.OutOrStdout())
			}
			cleared, err := env.Manager(nil).ClearHistory(cmd.Context(), c)
			if err != nil {
				return err
			}
			if cleared {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), session.HistoryClearedText)
			} else {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "History kept.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// confirmer asks with a huh form on a terminal and with a line prompt
// otherwise.
func confirmer(in io.Reader, out io.Writer) session.Confirmer {
	if f, ok := in.(*os.File); ok && isTerminal(f) && isTerminal(os.Stdout) {
		return session.ConfirmFunc(func(ctx context.Context, prompt string) (bool, error) {
			var ok bool
			form := huh.NewForm(huh.NewGroup(
				huh.NewConfirm().
					Title(prompt).
					Affirmative("Yes").
					Negative("No").
					Value(&ok),
			)).WithTheme(huh.ThemeCharm())
			if err := form.RunWithContext(ctx); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					return false, nil
				}
				return false, errors.Wrap(err, "confirm")
			}
			return ok, nil
		})
	}
	return session.ConfirmFunc(func(_ context.Context, prompt string) (bool, error) {
		return askYesNo(in, out, prompt)
	})
}

func askYesNo(in io.Reader, out io.Writer, prompt string) (bool, error) {
	u := &input.UI{Writer: out, Reader: in}
	answer, err := u.Ask(prompt+" [y/n]", &input.Options{
		Default:  "n",
		Required: true,
		Loop:     true,
		ValidateFunc: func(answer string) error {
			switch answer {
			case "y", "Y", "n", "N":
				return nil
			default:
				return errors.Errorf("please enter 'y' or 'n'")
			}
		},
	})
	if err != nil {
		return false, errors.Wrap(err, "read confirmation")
	}
	return answer == "y" || answer == "Y", nil
}
