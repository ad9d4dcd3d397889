package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/plataformas/internal/adapters/driving/tui"
)

var browseCmd = &cobra.Command{
	Use:     "browse",
	Aliases: []string{"tui"},
	Short:   "Browse positions interactively",
	Long: `Opens a terminal browser over parties and their synthesized positions.

Controls:
  ↑/k, ↓/j - Navigate
  /        - Filter parties
  Enter    - Open
  h        - Toggle history in a position
  Esc      - Back
  ?        - Help
  q        - Quit`,
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	app, err := tui.NewApp(&tui.Ports{
		Corpus:  corpusService,
		Reports: reportService,
	})
	if err != nil {
		return fmt.Errorf("failed to create browser: %w", err)
	}

	if err := app.WithContext(cmd.Context()).Run(); err != nil {
		return fmt.Errorf("browser error: %w", err)
	}
	return nil
}
