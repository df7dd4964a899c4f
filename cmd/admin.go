package main

import (
	"errors"
	"fmt"

	"github.com/BinLe1988/payday-server/models"
	"github.com/BinLe1988/payday-server/pkg/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var adminFlags struct {
	username string
	password string
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account",
	Example: `  payday create-admin --username root --password 'a-long-password'`,
	RunE: runCreateAdmin,
}

func init() {
	rootCmd.AddCommand(createAdminCmd)
	createAdminCmd.Flags().StringVarP(&adminFlags.username, "username", "u", "", "admin username")
	createAdminCmd.Flags().StringVarP(&adminFlags.password, "password", "p", "", "admin password (min 6 characters)")
	_ = createAdminCmd.MarkFlagRequired("username")
	_ = createAdminCmd.MarkFlagRequired("password")
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	if len(adminFlags.password) < 6 {
		return errors.New("password must be at least 6 characters")
	}

	a, err := newApp(cmd.Context(), "payday-cli", false)
	if err != nil {
		return err
	}
	defer a.close()

	var count int64
	if err := a.db.Model(&models.Admin{}).Where("username = ?", adminFlags.username).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("admin %q already exists", adminFlags.username)
	}

	hash, err := utils.HashPassword(adminFlags.password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	admin := models.Admin{Username: adminFlags.username, PasswordHash: hash, IsActive: true}
	if err := a.db.Create(&admin).Error; err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	a.log.Info("admin created", zap.String("admin_id", admin.ID), zap.String("username", admin.Username))
	fmt.Fprintf(cmd.OutOrStdout(), "admin %s created (id %s)\n", admin.Username, admin.ID)
	return nil
}
