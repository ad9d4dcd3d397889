package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/plataformas/internal/adapters/driven/watcher"
	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/logger"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database and seed the default categories",
	Long: `Creates the configuration directory and database, applies migrations and
inserts the default analysis categories. Running it again only adds
categories that are missing.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var discoverCmd = &cobra.Command{
	Use:   "discover <dir>",
	Short: "Register party platforms found in a directory",
	Long: `Scans <dir> for party folders named ABBR-Full-Name that contain ABBR.pdf
and an optional metadata.json, registering each party and its platform.
A PDF whose content hash is already registered is skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runDiscover,
}

var watchProcess bool

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Register platforms as they appear in a directory",
	Long: `Watches <dir> and runs discover whenever a party folder, its PDF or its
metadata.json is created or changed. With --process, newly registered
documents are processed straight away. Stop with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var extractForce bool

var extractCmd = &cobra.Command{
	Use:   "extract [document-id...]",
	Short: "Extract and cache page text",
	Long: `Extracts page text for the selected documents (all by default), using
native PDF text and falling back to OCR for scanned files. Cached text is
reused unless --force is given, which also drops the document's embeddings.`,
	RunE: runExtract,
}

var extractParty string

func init() {
	watchCmd.Flags().BoolVar(&watchProcess, "process", false, "process newly registered documents")
	extractCmd.Flags().BoolVar(&extractForce, "force", false, "discard cached text and embeddings first")
	extractCmd.Flags().StringVarP(&extractParty, "party", "p", "", "restrict to one party abbreviation")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(extractCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	if categoryService == nil {
		return errNotConfigured("category")
	}

	added, err := categoryService.Seed(cmd.Context())
	if err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}

	if paths.ConfigFile != "" {
		cmd.Printf("Config:   %s\n", paths.ConfigFile)
	}
	if paths.Database != "" {
		cmd.Printf("Database: %s\n", paths.Database)
	}
	if paths.Prompts != "" {
		cmd.Printf("Prompts:  %s\n", paths.Prompts)
	}
	cmd.Printf("Seeded %d categories\n", added)
	return nil
}

func runDiscover(cmd *cobra.Command, args []string) error {
	if corpusService == nil {
		return errNotConfigured("corpus")
	}

	report, err := corpusService.Discover(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}
	printDiscovery(cmd, report)
	return nil
}

func printDiscovery(cmd *cobra.Command, report *domain.DiscoveryReport) {
	for _, d := range report.Registered {
		cmd.Printf("  + %s (%d pages)\n", d.Title, d.PageCount)
	}
	for _, e := range report.Errors {
		cmd.Printf("  ! %s\n", e)
	}
	cmd.Printf("Parties: %d  Registered: %d  Skipped: %d  Errors: %d\n",
		report.Parties, len(report.Registered), report.Skipped, len(report.Errors))
}

func runWatch(cmd *cobra.Command, args []string) error {
	if corpusService == nil {
		return errNotConfigured("corpus")
	}
	if watchProcess && pipelineService == nil {
		return errNotConfigured("pipeline")
	}

	w, err := watcher.New(args[0], watcher.DefaultQuiet)
	if err != nil {
		return err
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Pick up anything already present before waiting for changes.
	if err := discoverOnce(ctx, cmd, w.Root()); err != nil {
		return err
	}
	cmd.Printf("Watching %s (Ctrl+C to stop)\n", w.Root())

	batches := make(chan watcher.Batch)
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx, batches) }()

	for {
		select {
		case <-ctx.Done():
			return <-errc
		case b := <-batches:
			for _, f := range b.Folders {
				logger.Debug("changed: %s", filepath.Base(f))
			}
			if err := discoverOnce(ctx, cmd, w.Root()); err != nil {
				logger.Error("discover: %v", err)
			}
		}
	}
}

func discoverOnce(ctx context.Context, cmd *cobra.Command, dir string) error {
	report, err := corpusService.Discover(ctx, dir)
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}
	if len(report.Registered) == 0 && len(report.Errors) == 0 {
		return nil
	}
	printDiscovery(cmd, report)

	if !watchProcess || len(report.Registered) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(report.Registered))
	for _, d := range report.Registered {
		ids = append(ids, d.ID)
	}
	batch := pipelineService.ProcessMultipleDocuments(ctx, ids, domain.ProcessOptions{})
	printBatch(cmd, batch)
	return nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	if corpusService == nil {
		return errNotConfigured("corpus")
	}
	if extractForce && indexService == nil {
		return errNotConfigured("index")
	}

	ctx := cmd.Context()
	docs, err := selectDocuments(ctx, extractParty, args)
	if err != nil {
		return err
	}

	failed := 0
	for _, d := range docs {
		if extractForce {
			// Some vector backends do not cascade from page text.
			if _, err := indexService.ClearDocument(ctx, d.ID); err != nil {
				return fmt.Errorf("clear embeddings for %d: %w", d.ID, err)
			}
		}
		pages, extracted, err := corpusService.EnsureText(ctx, d.ID, extractForce)
		if err != nil {
			failed++
			cmd.Printf("  ! %s: %v\n", d.Title, err)
			continue
		}
		state := "cached"
		if extracted {
			state = "extracted"
		}
		cmd.Printf("  %s: %d pages %s%s\n", d.Title, len(pages), state, methodNote(pages))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(docs))
	}
	return nil
}

// methodNote flags documents that needed OCR.
func methodNote(pages []domain.PageText) string {
	for _, p := range pages {
		if p.Method == domain.ExtractionOCR {
			return " (ocr)"
		}
	}
	return ""
}
