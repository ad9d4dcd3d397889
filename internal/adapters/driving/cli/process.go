package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/plataformas/internal/core/domain"
)

var (
	processParty        string
	processCategories   []string
	processWorkers      int
	processDryRun       bool
	processRegenerate   bool
	processForceExtract bool
	backfillWorkers     int
)

var processCmd = &cobra.Command{
	Use:   "process [document-id...]",
	Short: "Synthesize positions for every category",
	Long: `Runs the full pipeline for the selected documents (all by default):
extract page text, embed chunks, then for each active category retrieve the
most relevant chunks and synthesize a cited position.

Completed (document, category) pairs are skipped, so an interrupted run can
simply be repeated. --regenerate resets completed pairs first.`,
	RunE: runProcess,
}

var backfillCmd = &cobra.Command{
	Use:   "backfill <category>",
	Short: "Process one category for every document that lacks it",
	Long: `Processes a single category for every document where it is not yet
completed, for example after adding a category or after failures.`,
	Args: cobra.ExactArgs(1),
	RunE: runBackfill,
}

func init() {
	processCmd.Flags().StringVarP(&processParty, "party", "p", "", "restrict to one party abbreviation")
	processCmd.Flags().StringSliceVarP(&processCategories, "category", "c", nil, "restrict to these category keys")
	processCmd.Flags().IntVarP(&processWorkers, "workers", "w", 0, "documents processed concurrently (default from settings)")
	processCmd.Flags().BoolVar(&processDryRun, "dry-run", false, "show eligible pairs and estimated cost only")
	processCmd.Flags().BoolVar(&processRegenerate, "regenerate", false, "reset completed pairs and synthesize them again")
	processCmd.Flags().BoolVar(&processForceExtract, "force-extract", false, "re-extract page text even when cached")
	backfillCmd.Flags().IntVarP(&backfillWorkers, "workers", "w", 0, "documents processed concurrently (default from settings)")

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(backfillCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	if pipelineService == nil {
		return errNotConfigured("pipeline")
	}
	if corpusService == nil {
		return errNotConfigured("corpus")
	}

	ctx := cmd.Context()
	docs, err := selectDocuments(ctx, processParty, args)
	if err != nil {
		return err
	}
	ids := documentIDs(docs)
	opts := domain.ProcessOptions{
		CategoryKeys: processCategories,
		Workers:      processWorkers,
		ForceExtract: processForceExtract,
	}

	if processDryRun {
		plan, err := pipelineService.Plan(ctx, ids, opts)
		if err != nil {
			return fmt.Errorf("plan: %w", err)
		}
		printPlan(cmd, plan, processRegenerate)
		return nil
	}

	if processRegenerate {
		n, err := pipelineService.Reset(ctx, ids, opts)
		if err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		cmd.Printf("Reset %d completed pairs\n", n)
	}

	report := pipelineService.ProcessMultipleDocuments(ctx, ids, opts)
	printBatch(cmd, report)
	if report.DocumentsFailed() > 0 {
		return fmt.Errorf("%d of %d documents failed", report.DocumentsFailed(), len(report.Documents))
	}
	return nil
}

func runBackfill(cmd *cobra.Command, args []string) error {
	if pipelineService == nil {
		return errNotConfigured("pipeline")
	}

	report, err := pipelineService.BackfillCategory(cmd.Context(), args[0], domain.ProcessOptions{Workers: backfillWorkers})
	if err != nil {
		return fmt.Errorf("backfill: %w", err)
	}
	cmd.Printf("Category %s: %d documents pending\n", report.Category.Name, report.DocumentsConsidered)
	if report.DocumentsConsidered == 0 {
		return nil
	}
	printBatch(cmd, report.Batch)
	return nil
}

func printPlan(cmd *cobra.Command, plan domain.ProcessPlan, regenerate bool) {
	cmd.Printf("Documents: %d\n", plan.Documents)
	cmd.Printf("Eligible pairs: %d\n", len(plan.Pairs))
	cmd.Printf("Already completed: %d\n", plan.AlreadyCompleted)
	if regenerate {
		cmd.Println("(--regenerate would also reprocess the completed pairs)")
	}
	for _, p := range plan.Pairs {
		cmd.Printf("  %-8s doc %-4d %-20s %s\n", p.PartyAbbr, p.DocumentID, p.CategoryKey, p.State)
	}
	cmd.Printf("Estimated: %d tokens, $%.4f\n", plan.EstimatedTokens, plan.EstimatedCostUSD)
}

func printBatch(cmd *cobra.Command, b domain.BatchReport) {
	for _, d := range b.Documents {
		name := d.Party.Abbreviation
		if name == "" {
			name = d.Document.Title
		}
		if d.Err != nil {
			cmd.Printf("  ! %s: %v\n", name, d.Err)
			continue
		}
		cmd.Printf("  %s: %d processed, %d already done, %d no content, %d failed ($%.4f, %s)\n",
			name,
			d.Count(domain.OutcomeProcessed),
			d.Count(domain.OutcomeAlreadyCompleted),
			d.Count(domain.OutcomeNoContent),
			d.Count(domain.OutcomeFailed),
			d.TotalCost(),
			d.Duration.Round(time.Millisecond))
		for _, r := range d.Results {
			if r.Outcome == domain.OutcomeFailed {
				cmd.Printf("      %s: %s\n", r.Category.Key, r.ErrorMessage())
			}
		}
	}

	cmd.Println()
	cmd.Printf("Run %s\n", b.RunID)
	cmd.Printf("Processed: %d  Already done: %d  No content: %d  Failed: %d\n",
		b.Count(domain.OutcomeProcessed),
		b.Count(domain.OutcomeAlreadyCompleted),
		b.Count(domain.OutcomeNoContent),
		b.Count(domain.OutcomeFailed))
	cmd.Printf("Documents failed: %d  Tokens: %d  Cost: $%.4f  Already processed: %.0f%%\n",
		b.DocumentsFailed(), b.TotalTokens(), b.TotalCost(), b.AlreadyProcessedRatio()*100)
}
