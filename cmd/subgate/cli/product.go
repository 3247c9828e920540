package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/subgate/subgate/internal/service"
)

func newProductCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product",
		Short: "Manage products and their API keys",
		Long:  "Provision products and issue or rotate the API keys they use to call subgate.",
	}

	cmd.AddCommand(newProductCreateCmd())
	cmd.AddCommand(newProductListCmd())
	cmd.AddCommand(newProductRotateKeyCmd())

	return cmd
}

// ---------- product create ----------

func newProductCreateCmd() *cobra.Command {
	var (
		id  string
		key string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a product and print its API key",
		Long: `Create a product. The id defaults to a slug of the name and becomes the
API key prefix. The plaintext key is printed once and cannot be recovered.`,
		Example: `  subgate product create "Auto Landlord"
  subgate product create Billing --id billing`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProductCreate(args[0], id, key)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Product id (default: derived from the name)")
	cmd.Flags().StringVar(&key, "key", "", "Use this API key instead of generating one")

	return cmd
}

func runProductCreate(name, id, key string) error {
	cfg, store, err := loadStore()
	if err != nil {
		return err
	}
	defer store.Close()

	p, plaintext, err := service.NewProductService(store, newHasher(cfg)).Create(context.Background(), id, name, key)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	fmt.Printf("Created product %q (%s)\n", p.Name, p.ID)
	fmt.Println()
	fmt.Printf("  API key: %s\n", plaintext)
	fmt.Println()
	fmt.Println("  Store this key now. It cannot be shown again.")
	return nil
}

// ---------- product list ----------

func newProductListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List products",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProductList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runProductList(jsonOutput bool) error {
	_, store, err := loadStore()
	if err != nil {
		return err
	}
	defer store.Close()

	products, err := store.ListProductsWithPlans(context.Background())
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(products)
	}

	if len(products) == 0 {
		fmt.Println("No products configured. Use 'subgate product create' to create one.")
		return nil
	}

	fmt.Printf("%-24s %-30s %-6s %-8s\n", "ID", "NAME", "PLANS", "ACTIVE")
	fmt.Printf("%-24s %-30s %-6s %-8s\n", "--", "----", "-----", "------")
	for _, p := range products {
		active := "yes"
		if !p.IsActive {
			active = "no"
		}
		fmt.Printf("%-24s %-30s %-6d %-8s\n", p.ID, p.Name, len(p.Plans), active)
	}

	return nil
}

// ---------- product rotate-key ----------

func newProductRotateKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rotate-key <product-id>",
		Short: "Replace a product's API key",
		Long:  "Issue a new API key for the product. The previous key stops working immediately.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProductRotateKey(args[0])
		},
	}

	return cmd
}

func runProductRotateKey(id string) error {
	cfg, store, err := loadStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if _, err := store.GetProduct(ctx, id); err != nil {
		return fmt.Errorf("find product %q: %w", id, err)
	}
	key, err := service.NewProductService(store, newHasher(cfg)).RotateKey(ctx, id)
	if err != nil {
		return fmt.Errorf("rotate key: %w", err)
	}

	fmt.Printf("New API key for %s: %s\n", id, key)
	fmt.Println("The previous key has been revoked.")
	return nil
}
