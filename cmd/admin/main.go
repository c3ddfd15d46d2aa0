// Package main provides account management utilities for PromptLime.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"promptlime/internal/config"
	"promptlime/internal/database"
	"promptlime/internal/models"
	"promptlime/internal/repository"
	"promptlime/internal/service"

	"github.com/spf13/cobra"
)

var users *service.UserService

var rootCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage PromptLime accounts",
	Long: `Admin manages PromptLime accounts directly against the database.

Users are addressed by numeric ID or by email address.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		db, err := database.Connect(cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		users = service.NewUserService(repository.NewUserRepository(db))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(
		toggleCmd("promote", "Grant the admin role", func(ctx context.Context, u *models.User) (*models.User, error) {
			return users.SetAdmin(ctx, 0, u.ID, true)
		}),
		toggleCmd("demote", "Remove the admin role", func(ctx context.Context, u *models.User) (*models.User, error) {
			return users.SetAdmin(ctx, 0, u.ID, false)
		}),
		toggleCmd("grant-pro", "Grant unlimited copies", func(ctx context.Context, u *models.User) (*models.User, error) {
			return users.SetPro(ctx, u.ID, true)
		}),
		toggleCmd("revoke-pro", "Return the user to the free tier", func(ctx context.Context, u *models.User) (*models.User, error) {
			return users.SetPro(ctx, u.ID, false)
		}),
		listAdminsCmd,
	)
}

func toggleCmd(use, short string, apply func(context.Context, *models.User) (*models.User, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <user_id|email>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			user, err := lookup(ctx, args[0])
			if err != nil {
				return err
			}
			updated, err := apply(ctx, user)
			if err != nil {
				return fmt.Errorf("%s %s: %w", use, user.Email, err)
			}
			fmt.Printf("✅ %s (ID: %d) admin=%t pro=%t\n", updated.Email, updated.ID, updated.IsAdmin, updated.IsPro)
			return nil
		},
	}
}

var listAdminsCmd = &cobra.Command{
	Use:   "list-admins",
	Short: "List all admins",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		admins, err := users.ListAdmins(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetch admins: %w", err)
		}
		if len(admins) == 0 {
			fmt.Println("No admins found in the system")
			return nil
		}

		fmt.Println("\n📋 Current Admins:")
		fmt.Println("─────────────────────────────────────")
		for _, admin := range admins {
			fmt.Printf("ID: %d | Name: %s | Email: %s\n", admin.ID, admin.Name, admin.Email)
		}
		fmt.Println("─────────────────────────────────────")
		return nil
	},
}

func lookup(ctx context.Context, ref string) (*models.User, error) {
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		return users.GetUserByID(ctx, uint(id))
	}
	return users.GetUserByEmail(ctx, ref)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
