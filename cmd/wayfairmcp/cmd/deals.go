package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomrikert/wayfair-mcp-server/internal/mcp"
	"github.com/tomrikert/wayfair-mcp-server/internal/output"
	"github.com/tomrikert/wayfair-mcp-server/internal/search"
)

type dealsOptions struct {
	minDiscount int
	limit       int
	format      string
}

func newDealsCmd() *cobra.Command {
	var opts dealsOptions

	cmd := &cobra.Command{
		Use:   "deals",
		Short: "List discounted catalog products",
		Long:  `List offline catalog products with at least --min-discount percent off, largest discount first.`,
		Example: `  wayfairmcp deals
  wayfairmcp deals --min-discount 35 --limit 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDeals(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.minDiscount, "min-discount", search.DefaultMinDiscount, "Minimum discount percentage")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", search.DefaultDealsLimit, "Maximum number of deals")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatText, "Output format: text, json")

	return cmd
}

func runDeals(cmd *cobra.Command, opts dealsOptions) error {
	if err := checkFormat(opts.format); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, appOptions{offline: true})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	deals, err := a.browser.Deals(opts.minDiscount, opts.limit)
	if err != nil {
		return err
	}

	if opts.format == formatJSON {
		return writeJSON(cmd, mcp.DealsOutput{
			MinDiscount: opts.minDiscount,
			Products:    mcp.ToProductOutputs(deals),
		})
	}

	out := output.New(cmd.OutOrStdout())
	out.Header(fmt.Sprintf("Deals: %d%% off or more", opts.minDiscount))
	out.Products(deals)
	return nil
}
