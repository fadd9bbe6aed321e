package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dailypost/internal/config"
	"dailypost/internal/external"
	"dailypost/internal/schedule"
)

// exitError carries a process exit code for conditions that are not
// failures of a remote call.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

const (
	exitNoInput = 2
	exitNoPosts = 3
)

const (
	outputJSON = "json"
	outputText = "text"
)

// app holds the dependencies shared by all subcommands. Fields left nil are
// built from the configuration in PersistentPreRunE; tests preset them.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	clock     schedule.Clock
	publisher external.PublishingClient
	model     external.LanguageModel
	settings  *config.SegmenterSettings
	stdin     io.Reader

	envFile string
	verbose bool
	output  string
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "dailypostctl",
		Short:         "Segment text into posts and schedule one per day",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "env file to load (default: optional .env)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", outputJSON, "output format: json|text")

	root.AddCommand(newAccountsCmd(a))
	root.AddCommand(newSegmentCmd(a))
	root.AddCommand(newScheduleCmd(a))
	root.AddCommand(newVersionCmd(a))

	return root
}

// init loads configuration and builds the clients not already set.
func (a *app) init(stderr io.Writer) error {
	if a.output != outputJSON && a.output != outputText {
		return fmt.Errorf("unknown output format %q (want json or text)", a.output)
	}

	if a.logger == nil {
		level := slog.LevelWarn
		if a.verbose {
			level = slog.LevelDebug
		}
		a.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	}

	if a.cfg == nil {
		var files []string
		if a.envFile != "" {
			files = append(files, a.envFile)
		}
		cfg, err := config.LoadConfig(files...)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		a.cfg = cfg
	}

	if a.settings == nil {
		settings, err := config.LoadSegmenterSettings(a.cfg.Segmenter.SettingsFile)
		if err != nil {
			return err
		}
		a.settings = settings
	}

	if a.publisher == nil || a.model == nil {
		merged := *a.cfg
		merged.Segmenter = a.settings.ApplyTo(a.cfg.Segmenter)
		registry, err := external.NewClientRegistry(&merged, a.logger)
		if err != nil {
			return err
		}
		if a.publisher == nil {
			a.publisher = registry.Publishing
		}
		if a.model == nil {
			a.model = registry.Model
		}
	}

	if a.clock == nil {
		a.clock = time.Now
	}
	return nil
}

// readInput returns the contents of path, or stdin when path is empty.
// Blank input is an exitNoInput error.
func (a *app) readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = io.ReadAll(a.stdin)
	}
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", &exitError{code: exitNoInput, msg: "no input text provided; use --file or pipe text via stdin"}
	}
	return string(data), nil
}
