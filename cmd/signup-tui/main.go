// signup-tui walks the registration flow in a terminal.
//
// Without --server it prints the collected submission as JSON (passwords
// included, so redirect it with care). With --server it replays the walk
// against a running vatfiler through the flow API and prints the created
// account.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"vatfiler/internal/registration/tui"
	"vatfiler/internal/registration/view"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var server string
	var timeout time.Duration

	flagSet := pflag.NewFlagSet("signup-tui", pflag.ContinueOnError)
	flagSet.StringVar(&server, "server", "", "vatfiler base URL to register against (e.g. http://localhost:8000)")
	flagSet.DurationVar(&timeout, "timeout", 10*time.Second, "timeout for the server round trip")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	c, err := view.DefaultCopy()
	if err != nil {
		return err
	}
	final, err := tea.NewProgram(tui.New(c)).Run()
	if err != nil {
		return fmt.Errorf("run terminal ui: %w", err)
	}
	sub, ok := final.(tui.Model).Submission()
	if !ok {
		return nil
	}

	if server == "" {
		return writeJSON(os.Stdout, sub)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	flow, err := newFlowClient(server)
	if err != nil {
		return err
	}
	resp, err := flow.submit(ctx, tui.Replay(sub))
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, resp)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "Usage: signup-tui [flags]\n\n")
	fmt.Fprintf(os.Stderr, "Walk the vatfiler registration flow in the terminal.\n\n")
	fmt.Fprintf(os.Stderr, "Keys: c open chooser, t/a choose, esc close, tab next field,\n")
	fmt.Fprintf(os.Stderr, "ctrl+t switch type, ctrl+e/ctrl+r interests, ctrl+a terms, enter register.\n\n")
	fmt.Fprintf(os.Stderr, "Flags:\n")
	flagSet.PrintDefaults()
}
