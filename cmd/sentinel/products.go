package main

import (
	"strconv"

	"github.com/spf13/cobra"
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List the products of the reference knowledge base",
	Args:  cobra.NoArgs,
	RunE:  runProducts,
}

func init() {
	rootCmd.AddCommand(productsCmd)
}

func runProducts(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := printer(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.closeTimeout(cfg.Server.ShutdownTimeout)

	products := a.coord.Products()
	rows := make([][]string, 0, len(products))
	for _, s := range products {
		rows = append(rows, []string{s.Slug, s.Name, s.NCMCode, s.Category, strconv.Itoa(s.RiskScore), string(s.Status)})
	}
	return p.Table(products, []string{"SLUG", "NAME", "NCM", "CATEGORY", "RISK", "STATUS"}, rows)
}
