package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/plataformas/internal/core/domain"
)

var (
	searchParty    string
	searchDocument int64
	searchK        int
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Semantic search over indexed platforms",
	Long: `Embeds the query and returns the nearest chunks by cosine distance.
Restrict the search with --party or --document; --document wins when both
are given.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchParty, "party", "p", "", "party abbreviation")
	searchCmd.Flags().Int64VarP(&searchDocument, "document", "d", 0, "document id")
	searchCmd.Flags().IntVarP(&searchK, "top-k", "k", domain.DefaultTopK, "number of chunks to return")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errNotConfigured("retrieval")
	}

	ctx := cmd.Context()
	scope := domain.SearchScope{DocumentID: searchDocument}
	if searchParty != "" && searchDocument == 0 {
		if corpusService == nil {
			return errNotConfigured("corpus")
		}
		party, err := corpusService.GetParty(ctx, searchParty)
		if err != nil {
			return fmt.Errorf("party %s: %w", searchParty, err)
		}
		scope.PartyID = party.ID
	}

	chunks, err := retrievalService.Retrieve(ctx, args[0], scope, searchK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, chunks)
	}
	outputSearchTable(cmd, chunks)
	return nil
}

type searchHit struct {
	DocumentID int64   `json:"document_id"`
	Page       int     `json:"page"`
	Chunk      int     `json:"chunk"`
	Similarity float64 `json:"similarity"`
	Text       string  `json:"text"`
}

func outputSearchJSON(cmd *cobra.Command, chunks []domain.RetrievedChunk) error {
	hits := make([]searchHit, len(chunks))
	for i, c := range chunks {
		hits[i] = searchHit{
			DocumentID: c.DocumentID,
			Page:       c.PageNumber,
			Chunk:      c.ChunkIndex,
			Similarity: c.Similarity,
			Text:       c.Text,
		}
	}
	data, err := json.MarshalIndent(hits, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, chunks []domain.RetrievedChunk) {
	if len(chunks) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, c := range chunks {
		cmd.Printf("  [%d] document %d, page %d (%.3f)\n", i+1, c.DocumentID, c.PageNumber, c.Similarity)
		cmd.Printf("      %s\n", preview(c.Text, 200))
		cmd.Println()
	}
}

// preview collapses whitespace and cuts s to n runes.
func preview(s string, n int) string {
	out := make([]rune, 0, n)
	space := false
	for _, r := range s {
		if r == '\n' || r == '\t' || r == ' ' || r == '\r' {
			space = len(out) > 0
			continue
		}
		if len(out) >= n {
			return string(out) + "..."
		}
		if space {
			out = append(out, ' ')
			space = false
		}
		out = append(out, r)
	}
	return string(out)
}
