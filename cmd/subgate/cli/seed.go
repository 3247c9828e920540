package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/subgate/subgate/internal/service"
)

func newSeedCmd() *cobra.Command {
	opts := service.DefaultSeedOptions()

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the default admin, development product, plans, and payment method",
		Long: `Seed the store with development data. Existing records are left untouched,
so the command is safe to run repeatedly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts)
		},
	}

	cmd.Flags().StringVar(&opts.AdminEmail, "admin-email", opts.AdminEmail, "Super admin email")
	cmd.Flags().StringVar(&opts.AdminPassword, "admin-password", opts.AdminPassword, "Super admin password")
	cmd.Flags().StringVar(&opts.ProductID, "product-id", opts.ProductID, "Development product id")
	cmd.Flags().StringVar(&opts.ProductName, "product-name", opts.ProductName, "Development product name")
	cmd.Flags().StringVar(&opts.ProductKey, "product-key", opts.ProductKey, "Development API key (empty generates one)")

	return cmd
}

func runSeed(opts service.SeedOptions) error {
	cfg, store, err := loadStore()
	if err != nil {
		return err
	}
	defer store.Close()

	logger := newLogger(cfg.Logging, os.Stderr)
	res, err := service.Seed(context.Background(), store, newHasher(cfg), logger, opts)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	if res.AdminCreated {
		fmt.Printf("✓ Super admin:    %s / %s\n", opts.AdminEmail, opts.AdminPassword)
	} else {
		fmt.Printf("· Super admin %s already exists\n", opts.AdminEmail)
	}
	if res.ProductCreated {
		fmt.Printf("✓ Product:        %s\n", opts.ProductID)
		fmt.Printf("  API key:        %s\n", res.APIKey)
	} else {
		fmt.Printf("· Product %s already exists\n", opts.ProductID)
	}
	fmt.Printf("✓ Plans created:  %d\n", res.PlansCreated)
	if res.PaymentMethodCreated {
		fmt.Println("✓ Payment method: manual_bank")
	}
	fmt.Printf("✓ Products linked to manual_bank: %d\n", res.ProductsLinked)
	return nil
}
