package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"custdash/domain/purchase"
	"custdash/internal/testkit"
)

func newDemoCmd() *cobra.Command {
	config := testkit.DefaultShoppingConfig()
	var variant string

	cmd := &cobra.Command{
		Use:   "demo OUT.csv",
		Short: "Write a synthetic purchase file",
		Long: `Write a reproducible synthetic purchase file in either upload layout.

Example: custdash-cli demo orders.csv --customers 500 --seed 7 --variant comma`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch purchase.Variant(variant) {
			case purchase.VariantSemicolon, purchase.VariantComma:
				config.Variant = purchase.Variant(variant)
			default:
				return fmt.Errorf("--variant must be %q or %q", purchase.VariantSemicolon, purchase.VariantComma)
			}

			gen := testkit.NewShoppingDataGenerator(config)
			rows := gen.GenerateTransactions()

			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", args[0], err)
			}
			if err := gen.WriteCSV(f, rows); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d transactions for %d customers to %s\n", len(rows), config.CustomerCount, args[0])
			return nil
		},
	}

	cmd.Flags().IntVar(&config.CustomerCount, "customers", config.CustomerCount, "number of customers")
	cmd.Flags().Int64Var(&config.Seed, "seed", config.Seed, "random seed")
	cmd.Flags().IntVar(&config.BrandCount, "brands", config.BrandCount, "number of brands (max 8)")
	cmd.Flags().StringVar(&variant, "variant", string(purchase.VariantSemicolon), "layout: semicolon (userID, email) or comma (userId)")

	return cmd
}
