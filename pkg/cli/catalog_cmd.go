package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lakegate/internal/catalog"
	"lakegate/internal/config"
	"lakegate/internal/domain"
)

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search the catalog for matching models",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadCatalogDocument()
			if err != nil {
				return err
			}

			hits := catalog.Search(doc, strings.Join(args, " "))
			if getOutputFormat(cmd) == "json" {
				printJSON(cmd.OutOrStdout(), hits)
				return nil
			}

			if len(hits) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matching models.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MODEL\tSCORE\tMATCHED\tDESCRIPTION")
			for _, h := range hits {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
					h.Model.Name, h.Score, strings.Join(h.MatchedFields, ","), h.Model.Description)
			}
			return tw.Flush()
		},
	}
}

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the catalog document",
	}
	cmd.AddCommand(newCatalogValidateCmd())
	cmd.AddCommand(newCatalogModelsCmd())
	return cmd
}

func newCatalogValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the catalog document and check its invariants",
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := loadCatalogDocument()
			if err != nil {
				return err
			}

			allow := catalog.BuildAllowlist(doc)
			if getOutputFormat(cmd) == "json" {
				printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"valid":  true,
					"models": len(doc.Models),
					"tables": allow.Tables(),
				})
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Catalog is valid: %d models, %d allowlisted tables.\n",
				len(doc.Models), len(allow.Tables()))
			return nil
		},
	}
}

func newCatalogModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List every model with its relation and columns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := loadCatalogDocument()
			if err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				printJSON(cmd.OutOrStdout(), doc.Models)
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MODEL\tRELATION\tCOLUMNS")
			for i := range doc.Models {
				m := &doc.Models[i]
				fmt.Fprintf(tw, "%s\t%s\t%d\n", m.Name, m.Relation(), len(m.Columns))
			}
			return tw.Flush()
		},
	}
}

func loadCatalogDocument() (*domain.CatalogDocument, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return catalog.LoadDocument(cfg.CatalogPath)
}
