package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/plataformas/internal/core/domain"
)

var (
	indexParty string
	indexClear bool
)

var indexCmd = &cobra.Command{
	Use:   "index [document-id...]",
	Short: "Embed page chunks for semantic search",
	Long: `Chunks every extracted page of the selected documents and stores one
embedding per chunk. Pages that already have embeddings are skipped, so the
command is safe to re-run. Page text is extracted first when missing.

With --clear the selected documents' embeddings are deleted instead, so the
next run rebuilds them.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVarP(&indexParty, "party", "p", "", "restrict to one party abbreviation")
	indexCmd.Flags().BoolVar(&indexClear, "clear", false, "delete embeddings instead of building them")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if indexService == nil {
		return errNotConfigured("index")
	}
	if corpusService == nil {
		return errNotConfigured("corpus")
	}
	if indexClear && len(args) == 0 && indexParty == "" {
		return fmt.Errorf("%w: --clear needs document ids or --party", domain.ErrInvalidInput)
	}

	ctx := cmd.Context()
	docs, err := selectDocuments(ctx, indexParty, args)
	if err != nil {
		return err
	}

	if indexClear {
		var total int64
		for _, d := range docs {
			n, err := indexService.ClearDocument(ctx, d.ID)
			if err != nil {
				return fmt.Errorf("clear document %d: %w", d.ID, err)
			}
			total += n
		}
		cmd.Printf("Deleted %d embeddings from %d documents\n", total, len(docs))
		return nil
	}

	var sum domain.IndexReport
	failed := 0
	for _, d := range docs {
		if _, _, err := corpusService.EnsureText(ctx, d.ID, false); err != nil {
			failed++
			cmd.Printf("  ! %s: %v\n", d.Title, err)
			continue
		}
		r, err := indexService.IndexDocument(ctx, d.ID)
		if err != nil {
			failed++
			cmd.Printf("  ! %s: %v\n", d.Title, err)
			continue
		}
		cmd.Printf("  %s: %d pages indexed, %d skipped, %d chunks", d.Title, r.PagesIndexed, r.PagesSkipped, r.ChunksEmbedded)
		if r.ChunksFailed > 0 {
			cmd.Printf(", %d failed", r.ChunksFailed)
		}
		cmd.Println()
		sum.Merge(r)
	}

	cmd.Printf("Indexed %d pages (%d skipped), %d chunks, %d failed, %d tokens, $%.4f\n",
		sum.PagesIndexed, sum.PagesSkipped, sum.ChunksEmbedded, sum.ChunksFailed, sum.Tokens, sum.CostUSD)
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(docs))
	}
	return nil
}
