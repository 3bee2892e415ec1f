// Package channels holds the input surfaces that feed the command bus.
// Only the CLI channel ships today; voice capture lives outside this
// repository and would publish to the same bus.
package channels

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/chzyer/readline"

	"github.com/mpetrov/marvin/pkg/bus"
	"github.com/mpetrov/marvin/pkg/logger"
)

const cliChannelName = "cli"

var exitPhrases = map[string]bool{
	"exit": true, "quit": true, "bye": true, "goodbye": true,
	"stop listening": true,
}

var (
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	replyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	executedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	bannerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true).
			Border(lipgloss.RoundedBorder()).Padding(0, 2)
)

// CLIChannel is the interactive readline shell. It publishes every line to
// the bus and prints the matching response before prompting again, which
// keeps the turn-taking contract visible to the user.
type CLIChannel struct {
	bus  *bus.CommandBus
	name string
	out  io.Writer
}

func NewCLIChannel(commandBus *bus.CommandBus, assistantName string) *CLIChannel {
	return &CLIChannel{
		bus:  commandBus,
		name: assistantName,
		out:  os.Stdout,
	}
}

// Run drives the REPL until an exit phrase, EOF, or context end.
func (c *CLIChannel) Run(ctx context.Context) error {
	fmt.Fprintln(c.out, bannerStyle.Render(fmt.Sprintf("%s, at your service", c.name)))
	fmt.Fprintln(c.out, executedStyle.Render(`Type a command, or "exit" to leave.`))
	fmt.Fprintln(c.out)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          promptStyle.Render("you> "),
		HistoryFile:     filepath.Join(os.TempDir(), ".marvin_history"),
		HistoryLimit:    200,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("initializing readline: %w", err)
	}
	defer rl.Close()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Fprintln(c.out, replyStyle.Render("Goodbye."))
				return nil
			}
			logger.WarnCF("channels", "Input error", map[string]interface{}{
				"error": err.Error(),
			})
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if exitPhrases[strings.ToLower(input)] {
			fmt.Fprintln(c.out, replyStyle.Render("Goodbye."))
			return nil
		}

		cmd := bus.NewCommand(cliChannelName, input)
		if err := c.bus.PublishCommand(ctx, cmd); err != nil {
			return err
		}

		resp, ok := c.bus.SubscribeResponse(ctx)
		if !ok {
			return ctx.Err()
		}
		c.printResponse(resp)
	}
}

func (c *CLIChannel) printResponse(resp bus.Response) {
	fmt.Fprintf(c.out, "\n%s %s\n", promptStyle.Render(c.name+">"), replyStyle.Render(resp.Text))
	if resp.Executed {
		fmt.Fprintln(c.out, executedStyle.Render("  (action executed)"))
	}
	fmt.Fprintln(c.out)
}
