// Command autocheck builds every autonomous routine against a settings
// file, validates it and prints its action tree. It exits non-zero if any
// routine cannot be built.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/xero1425/xerobot/action"
	"github.com/xero1425/xerobot/auto"
	"github.com/xero1425/xerobot/automodes"
	"github.com/xero1425/xerobot/clock"
	"github.com/xero1425/xerobot/logging"
	"github.com/xero1425/xerobot/settings"
)

type Args struct {
	SettingsPath string
	LogLevel     string
}

func main() {
	if err := run(parseArgs(), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args Args, out io.Writer) error {
	logger, err := logging.New(logging.Config{Level: args.LogLevel, Format: "text", Output: "stderr"})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	st, err := automodes.DefaultSettings()
	if args.SettingsPath != "" {
		st, err = settings.Load(args.SettingsPath)
	}
	if err != nil {
		return err
	}

	env := action.NewEnv(action.WithLogger(logger.Logger), action.WithClock(clock.NewManualClock()))
	tree, err := automodes.NewTree(env, st)
	if err != nil {
		return err
	}

	builders := append(tree.Builders(), tree.TestMode())
	failed := 0
	for i, b := range builders {
		index := i
		if i == len(builders)-1 {
			index = auto.TestModeIndex
		}
		if err := check(out, env, index, b); err != nil {
			fmt.Fprintf(out, "[%d] %s: UNAVAILABLE: %v\n\n", index, b.Name, err)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d auto modes unavailable", failed, len(builders))
	}
	return nil
}

func check(out io.Writer, env *action.Env, index int, b auto.Builder) error {
	m, err := b.Build(env)
	if err != nil {
		return err
	}
	if err := action.Validate(m); err != nil {
		return err
	}
	fmt.Fprintf(out, "[%d] %s\n%s\n\n", index, b.Name, action.Dump(m))
	return nil
}

func parseArgs() Args {
	settingsPath := flag.String("settings", "", "Path to settings file (defaults to the built-in settings)")
	logLevel := flag.String("log-level", "warn", "Log level: debug, info, warn, error")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nBuild and validate every autonomous routine\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()
	return Args{SettingsPath: *settingsPath, LogLevel: *logLevel}
}
