// Package cli provides the plataformas command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/plataformas/internal/core/ports/driving"
	"github.com/custodia-labs/plataformas/internal/logger"
)

// version is set by Execute from build metadata.
var version = "dev"

// Services injected by the composition root.
var (
	corpusService    driving.CorpusService
	categoryService  driving.CategoryService
	reportService    driving.ReportService
	pipelineService  driving.PipelineService
	indexService     driving.IndexService
	retrievalService driving.RetrievalService
	settingsService  driving.SettingsService
	paths            Paths
)

// Paths are the on-disk locations reported by init.
type Paths struct {
	ConfigFile string
	Database   string
	Prompts    string
}

// Services bundles every driving port the commands use.
type Services struct {
	Corpus     driving.CorpusService
	Categories driving.CategoryService
	Reports    driving.ReportService
	Pipeline   driving.PipelineService
	Index      driving.IndexService
	Retrieval  driving.RetrievalService
	Settings   driving.SettingsService
	Paths      Paths
}

// SetServices installs the services used by every command.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	corpusService = s.Corpus
	categoryService = s.Categories
	reportService = s.Reports
	pipelineService = s.Pipeline
	indexService = s.Index
	retrievalService = s.Retrieval
	settingsService = s.Settings
	paths = s.Paths
}

// Options are the root flags the bootstrap needs before services exist.
type Options struct {
	EnvFile string
	Verbose bool
}

// Bootstrap builds the services for one invocation. The returned cleanup
// runs after the command finishes.
type Bootstrap func(ctx context.Context, opts Options) (*Services, func(), error)

var (
	bootstrap Bootstrap
	cleanup   func()
	rootOpts  Options
)

var rootCmd = &cobra.Command{
	Use:   "plataformas",
	Short: "Summarize party platform positions with retrieval and an LLM",
	Long: `plataformas registers party platform PDFs, extracts and indexes their text,
and synthesizes a cited position summary for every (party, category) pair.

Typical flow:
  plataformas init
  plataformas discover ./platforms
  plataformas process
  plataformas status
  plataformas show PLN`,
	SilenceUsage:      true,
	PersistentPreRunE: prepare,
	PersistentPostRun: func(*cobra.Command, []string) {
		if cleanup != nil {
			cleanup()
			cleanup = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootOpts.Verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&rootOpts.EnvFile, "env-file", ".env", "dotenv file loaded before configuration")
}

// needsServices reports whether cmd touches the core at all.
func needsServices(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "completion":
		return false
	}
	return cmd.Runnable()
}

func prepare(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(rootOpts.Verbose)
	if bootstrap == nil || !needsServices(cmd) {
		return nil
	}

	s, done, err := bootstrap(cmd.Context(), rootOpts)
	if err != nil {
		return err
	}
	SetServices(s)
	cleanup = done
	return nil
}

// Execute runs the root command. boot may be nil when services were
// installed with SetServices.
func Execute(ctx context.Context, buildVersion string, boot Bootstrap) error {
	if buildVersion != "" {
		version = buildVersion
	}
	bootstrap = boot
	err := rootCmd.ExecuteContext(ctx)
	// PersistentPostRun is skipped when RunE fails.
	if cleanup != nil {
		cleanup()
		cleanup = nil
	}
	return err
}

func errNotConfigured(name string) error {
	return fmt.Errorf("%s service not configured", name)
}

// errNoSelection is returned by commands that need documents but matched none.
var errNoSelection = errors.New("no documents match the selection")
