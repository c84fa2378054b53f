// Command clarityctl drives the CLARITY pipeline stages from the
// shell: sweep execution, metric computation, surface and gradient
// aggregation, evidence extraction, counterfactual probing, report
// rendering, cache management, and the historical ledger. Each
// subcommand reads and writes the same JSON artifacts the library
// packages already define, so a run can be resumed or inspected stage
// by stage without the binary holding any state of its own.
package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/m-cahill/clarity/internal/config"
)

var (
	configPathFlag string
	cacheDirFlag   string
	dataDirFlag    string
	noColorFlag    bool
)

func main() {
	root := buildRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "clarityctl:", err)
		os.Exit(1)
	}
}

// buildRootCommand assembles the full command tree. Split out from
// main so tests can walk it without invoking os.Exit.
func buildRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "clarityctl",
		Short:         "clarityctl drives the CLARITY robustness pipeline",
		Long:          "clarityctl runs sweeps, computes robustness metrics, extracts evidence overlays, probes counterfactuals, and renders reports for CLARITY cases.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPathFlag, "config", "", "path to a JSON config file (optional)")
	root.PersistentFlags().StringVar(&cacheDirFlag, "cache-dir", "", "override the configured cache directory")
	root.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "override the configured artifact root")
	root.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output even on a TTY")

	root.AddCommand(
		sweepCmd(),
		metricsCmd(),
		surfaceCmd(),
		gradientCmd(),
		evidenceCmd(),
		counterfactualCmd(),
		reportCmd(),
		cacheCmd(),
		historicalCmd(),
		signCmd(),
	)
	return root
}

// loadConfig resolves the effective configuration for this invocation:
// defaults, the optional --config file, environment variables, and
// finally the --cache-dir/--data-dir flags, which take the highest
// precedence.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPathFlag)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cacheDirFlag != "" {
		cfg.CacheDir = cacheDirFlag
	}
	if dataDirFlag != "" {
		cfg.ArtifactRoot = dataDirFlag
	}
	return cfg, nil
}

// colorEnabled reports whether stdout is a color-capable terminal and
// the user has not asked for --no-color.
func colorEnabled() bool {
	if noColorFlag {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// bold wraps s in an ANSI bold escape when colorEnabled, otherwise
// returns it unchanged.
func bold(s string) string {
	if !colorEnabled() {
		return s
	}
	return "\033[1m" + s + "\033[0m"
}

func green(s string) string {
	if !colorEnabled() {
		return s
	}
	return "\033[32m" + s + "\033[0m"
}

func yellow(s string) string {
	if !colorEnabled() {
		return s
	}
	return "\033[33m" + s + "\033[0m"
}
