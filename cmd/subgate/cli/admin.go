package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/subgate/subgate/internal/model"
	"github.com/subgate/subgate/internal/service"
)

const minPasswordLength = 8

func checkPassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	if len(password) > service.MaxSecretLength {
		return fmt.Errorf("password must be at most %d bytes", service.MaxSecretLength)
	}
	return nil
}

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin users",
		Long:  "Create, list, and maintain the operator accounts that sign in to the management API.",
	}

	cmd.AddCommand(newAdminCreateCmd())
	cmd.AddCommand(newAdminListCmd())
	cmd.AddCommand(newAdminSetPasswordCmd())
	cmd.AddCommand(newAdminDisableCmd())

	return cmd
}

// ---------- admin create ----------

func newAdminCreateCmd() *cobra.Command {
	var (
		email    string
		password string
		name     string
		super    bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new admin user",
		Example: `  subgate admin create --email admin@example.com --password secret123 --super
  subgate admin create --email ops@example.com  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminCreate(email, password, name, super)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (prompted if omitted)")
	cmd.Flags().StringVar(&name, "name", "", "Admin display name")
	cmd.Flags().BoolVar(&super, "super", false, "Grant the SUPER_ADMIN role")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runAdminCreate(email, password, name string, super bool) error {
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address: %q", email)
	}

	if password == "" {
		var err error
		if password, err = promptPassword(); err != nil {
			return err
		}
	}
	if err := checkPassword(password); err != nil {
		return err
	}

	cfg, store, err := loadStore()
	if err != nil {
		return err
	}
	defer store.Close()

	hash, err := newHasher(cfg).Hash(password)
	if err != nil {
		return err
	}

	role := model.RoleAdmin
	if super {
		role = model.RoleSuperAdmin
	}
	if name == "" {
		name = email
	}
	admin := &model.Admin{Email: email, PasswordHash: hash, Name: name, Role: role, IsActive: true}
	if err := store.CreateAdmin(context.Background(), admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	fmt.Printf("Created admin %q (%s, id %s)\n", admin.Email, admin.Role, admin.ID)
	return nil
}

// ---------- admin list ----------

func newAdminListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all admin users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runAdminList(jsonOutput bool) error {
	_, store, err := loadStore()
	if err != nil {
		return err
	}
	defer store.Close()

	admins, err := store.ListAdmins(context.Background())
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(admins)
	}

	if len(admins) == 0 {
		fmt.Println("No admin users configured. Use 'subgate admin create' to create one.")
		return nil
	}

	fmt.Printf("%-30s %-24s %-12s %-8s\n", "EMAIL", "NAME", "ROLE", "ACTIVE")
	fmt.Printf("%-30s %-24s %-12s %-8s\n", "-----", "----", "----", "------")
	for _, a := range admins {
		active := "yes"
		if !a.IsActive {
			active = "no"
		}
		fmt.Printf("%-30s %-24s %-12s %-8s\n", a.Email, a.Name, a.Role, active)
	}

	return nil
}

// ---------- admin set-password ----------

func newAdminSetPasswordCmd() *cobra.Command {
	var (
		email    string
		password string
	)

	cmd := &cobra.Command{
		Use:   "set-password",
		Short: "Replace an admin's password",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminSetPassword(email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "New password (prompted if omitted)")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runAdminSetPassword(email, password string) error {
	if password == "" {
		var err error
		if password, err = promptPassword(); err != nil {
			return err
		}
	}
	if err := checkPassword(password); err != nil {
		return err
	}

	cfg, store, err := loadStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	admin, err := store.GetAdminByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find admin %q: %w", email, err)
	}
	hash, err := newHasher(cfg).Hash(password)
	if err != nil {
		return err
	}
	if _, err := store.UpdateAdmin(ctx, admin.ID, model.AdminPatch{PasswordHash: &hash}); err != nil {
		return fmt.Errorf("update admin: %w", err)
	}

	fmt.Printf("Password updated for %q\n", admin.Email)
	return nil
}

// ---------- admin disable ----------

func newAdminDisableCmd() *cobra.Command {
	var enable bool

	cmd := &cobra.Command{
		Use:   "disable <email>",
		Short: "Deactivate an admin so they can no longer sign in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminDisable(args[0], enable)
		},
	}

	cmd.Flags().BoolVar(&enable, "enable", false, "Reactivate the admin instead")

	return cmd
}

func runAdminDisable(email string, enable bool) error {
	_, store, err := loadStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	admin, err := store.GetAdminByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find admin %q: %w", email, err)
	}
	if _, err := store.UpdateAdmin(ctx, admin.ID, model.AdminPatch{IsActive: &enable}); err != nil {
		return fmt.Errorf("update admin: %w", err)
	}

	state := "disabled"
	if enable {
		state = "enabled"
	}
	fmt.Printf("Admin %q %s\n", admin.Email, state)
	return nil
}
