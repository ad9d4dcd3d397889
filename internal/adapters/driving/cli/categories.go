package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/plataformas/internal/adapters/driven/config/catalog"
)

var categoriesActiveOnly bool

var categoriesCmd = &cobra.Command{
	Use:     "categories",
	Aliases: []string{"cat"},
	Short:   "Manage analysis categories",
	RunE:    runCategoriesList,
}

var categoriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories",
	RunE:  runCategoriesList,
}

var categoriesLoadCmd = &cobra.Command{
	Use:   "load <file.yaml>",
	Short: "Add or update categories from a catalog file",
	Long: `Reads a YAML catalog and upserts each category by key. Existing
positions are kept; new categories are picked up by the next process or
backfill run.`,
	Args: cobra.ExactArgs(1),
	RunE: runCategoriesLoad,
}

var categoriesActivateCmd = &cobra.Command{
	Use:   "activate <key>",
	Short: "Include a category in new runs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setCategoryActive(cmd, args[0], true)
	},
}

var categoriesDeactivateCmd = &cobra.Command{
	Use:   "deactivate <key>",
	Short: "Exclude a category from new runs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setCategoryActive(cmd, args[0], false)
	},
}

func init() {
	categoriesListCmd.Flags().BoolVar(&categoriesActiveOnly, "active", false, "only active categories")
	categoriesCmd.AddCommand(categoriesListCmd)
	categoriesCmd.AddCommand(categoriesLoadCmd)
	categoriesCmd.AddCommand(categoriesActivateCmd)
	categoriesCmd.AddCommand(categoriesDeactivateCmd)
	rootCmd.AddCommand(categoriesCmd)
}

func runCategoriesList(cmd *cobra.Command, _ []string) error {
	if categoryService == nil {
		return errNotConfigured("category")
	}

	cats, err := categoryService.List(cmd.Context(), categoriesActiveOnly)
	if err != nil {
		return fmt.Errorf("failed to list categories: %w", err)
	}
	if len(cats) == 0 {
		cmd.Println("No categories. Run 'plataformas init' to seed the defaults.")
		return nil
	}

	for _, c := range cats {
		mark := " "
		if c.Active {
			mark = "*"
		}
		cmd.Printf("%s %-20s %s\n", mark, c.Key, c.Name)
	}
	return nil
}

func runCategoriesLoad(cmd *cobra.Command, args []string) error {
	if categoryService == nil {
		return errNotConfigured("category")
	}

	cats, err := catalog.Load(args[0])
	if err != nil {
		return err
	}
	n, err := categoryService.Load(cmd.Context(), cats)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}
	cmd.Printf("Loaded %d categories from %s\n", n, args[0])
	return nil
}

func setCategoryActive(cmd *cobra.Command, key string, active bool) error {
	if categoryService == nil {
		return errNotConfigured("category")
	}
	if err := categoryService.SetActive(cmd.Context(), key, active); err != nil {
		return fmt.Errorf("category %s: %w", key, err)
	}
	state := "deactivated"
	if active {
		state = "activated"
	}
	cmd.Printf("Category %s %s\n", key, state)
	return nil
}
