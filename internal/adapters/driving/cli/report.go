package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/plataformas/internal/core/domain"
)

const barWidth = 24

var (
	statusLog int

	showCategory string
	showJSON     bool
	showHistory  bool
)

var (
	barDone    = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E"))
	barFailed  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	barPending = lipgloss.NewStyle().Foreground(lipgloss.Color("#374151"))
	heading    = lipgloss.NewStyle().Bold(true)
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show corpus and processing progress",
	RunE:  runStatus,
}

var showCmd = &cobra.Command{
	Use:   "show <party>",
	Short: "Show a party's synthesized positions",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	statusCmd.Flags().IntVar(&statusLog, "log", 0, "also print the newest N processing log entries")
	showCmd.Flags().StringVarP(&showCategory, "category", "c", "", "only this category key")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "output positions as JSON")
	showCmd.Flags().BoolVar(&showHistory, "history", false, "include replaced positions (requires --category)")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(showCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if reportService == nil {
		return errNotConfigured("report")
	}

	ctx := cmd.Context()
	st, err := reportService.Status(ctx)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	cmd.Printf("Parties: %d  Documents: %d  Embeddings: %d\n", st.Parties, st.Documents, st.Embeddings)
	cmd.Printf("Positions: %d  Tokens: %d  Cost: $%.4f\n",
		st.Totals.Positions, st.Totals.TokensUsed, st.Totals.CostUSD)
	cmd.Println()

	if len(st.Progress) > 0 {
		cmd.Println(heading.Render("Progress"))
	}
	for _, p := range st.Progress {
		line := fmt.Sprintf("  %-24s %s %3.0f%% (%d/%d", p.Category.Name, progressBar(p), p.Percent(), p.Completed, p.Total)
		if p.Failed > 0 {
			line += fmt.Sprintf(", %d failed", p.Failed)
		}
		if p.Started > 0 {
			line += fmt.Sprintf(", %d running", p.Started)
		}
		cmd.Println(line + ")")
	}

	if statusLog <= 0 {
		return nil
	}
	entries, err := reportService.RecentLogs(ctx, statusLog)
	if err != nil {
		return fmt.Errorf("processing log: %w", err)
	}
	cmd.Println()
	cmd.Println(heading.Render("Recent activity"))
	for _, e := range entries {
		printLogEntry(cmd, e)
	}
	return nil
}

// progressBar renders completed, failed and pending shares of a category.
func progressBar(p domain.CategoryProgress) string {
	if p.Total == 0 {
		return barPending.Render(strings.Repeat("░", barWidth))
	}
	done := p.Completed * barWidth / p.Total
	failed := p.Failed * barWidth / p.Total
	if done+failed > barWidth {
		failed = barWidth - done
	}
	rest := barWidth - done - failed
	return barDone.Render(strings.Repeat("█", done)) +
		barFailed.Render(strings.Repeat("█", failed)) +
		barPending.Render(strings.Repeat("░", rest))
}

func printLogEntry(cmd *cobra.Command, e domain.ProcessingLogEntry) {
	line := fmt.Sprintf("  %s %-10s %-7s doc %d",
		e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Stage, e.Status, e.DocumentID)
	if e.CategoryID != 0 {
		line += fmt.Sprintf(" cat %d", e.CategoryID)
	}
	if e.TokensUsed > 0 {
		line += fmt.Sprintf(" %d tok $%.4f", e.TokensUsed, e.CostUSD)
	}
	if e.ErrorMessage != "" {
		line += " " + e.ErrorMessage
	}
	cmd.Println(line)
}

func runShow(cmd *cobra.Command, args []string) error {
	if reportService == nil {
		return errNotConfigured("report")
	}
	if showHistory && showCategory == "" {
		return fmt.Errorf("--history requires --category")
	}

	ctx := cmd.Context()
	abbr := strings.ToUpper(args[0])
	views, err := reportService.Positions(ctx, abbr, showCategory)
	if err != nil {
		return fmt.Errorf("positions for %s: %w", abbr, err)
	}

	var history []domain.PositionView
	if showHistory {
		history, err = reportService.History(ctx, abbr, showCategory)
		if err != nil {
			return fmt.Errorf("history for %s: %w", abbr, err)
		}
	}

	if showJSON {
		return outputPositionsJSON(cmd, views, history)
	}

	if len(views) == 0 {
		cmd.Printf("No positions for %s yet.\n", abbr)
		return nil
	}
	cmd.Println(heading.Render(views[0].Party.Name + " (" + views[0].Party.Abbreviation + ")"))
	for _, v := range views {
		printPosition(cmd, v)
	}
	if showHistory {
		cmd.Println(heading.Render("History"))
		if len(history) == 0 {
			cmd.Println("  No earlier versions.")
		}
		for _, v := range history {
			printPosition(cmd, v)
		}
	}
	return nil
}

func printPosition(cmd *cobra.Command, v domain.PositionView) {
	p := v.Position
	cmd.Println()
	cmd.Printf("## %s\n", v.Category.Name)
	cmd.Println(p.Summary)
	for i, kp := range p.KeyProposals {
		cmd.Printf("  %d. %s\n", i+1, kp)
	}
	if p.IdeologyPosition != "" {
		cmd.Printf("  Ideology: %s\n", p.IdeologyPosition)
	}
	if p.BudgetMentioned != "" {
		cmd.Printf("  Budget: %s\n", p.BudgetMentioned)
	}
	confidence := "-"
	if p.ConfidenceScore != nil {
		confidence = fmt.Sprintf("%.0f%%", *p.ConfidenceScore*100)
	}
	cmd.Printf("  Confidence %s · %d chunks (avg similarity %.2f) · %d tokens · $%.4f · %s · %s\n",
		confidence, p.ChunksUsed, p.AvgSimilarity, p.TokensUsed(), p.CostUSD, p.Model,
		p.UpdatedAt.Local().Format("2006-01-02 15:04"))
}

type positionJSON struct {
	Party            string   `json:"party"`
	Category         string   `json:"category"`
	Summary          string   `json:"summary"`
	KeyProposals     []string `json:"key_proposals"`
	IdeologyPosition string   `json:"ideology_position,omitempty"`
	BudgetMentioned  string   `json:"budget_mentioned,omitempty"`
	ConfidenceScore  *float64 `json:"confidence_score"`
	ChunksUsed       int      `json:"chunks_used"`
	TokensUsed       int      `json:"tokens_used"`
	CostUSD          float64  `json:"cost_usd"`
	Model            string   `json:"model"`
	UpdatedAt        string   `json:"updated_at"`
}

func toPositionJSON(v domain.PositionView) positionJSON {
	p := v.Position
	proposals := p.KeyProposals
	if proposals == nil {
		proposals = []string{}
	}
	return positionJSON{
		Party:            v.Party.Abbreviation,
		Category:         v.Category.Key,
		Summary:          p.Summary,
		KeyProposals:     proposals,
		IdeologyPosition: p.IdeologyPosition,
		BudgetMentioned:  p.BudgetMentioned,
		ConfidenceScore:  p.ConfidenceScore,
		ChunksUsed:       p.ChunksUsed,
		TokensUsed:       p.TokensUsed(),
		CostUSD:          p.CostUSD,
		Model:            p.Model,
		UpdatedAt:        p.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func outputPositionsJSON(cmd *cobra.Command, views, history []domain.PositionView) error {
	out := struct {
		Positions []positionJSON `json:"positions"`
		History   []positionJSON `json:"history,omitempty"`
	}{Positions: []positionJSON{}}
	for _, v := range views {
		out.Positions = append(out.Positions, toPositionJSON(v))
	}
	for _, v := range history {
		out.History = append(out.History, toPositionJSON(v))
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal positions: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
