package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"event-checkout/internal/services"
)

func storageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Manage ticket document storage",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "setup",
		Short: "Create the R2 bucket for ticket documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.R2Configured() {
				return errors.New("R2_ACCOUNT_ID, R2_ACCESS_KEY_ID and R2_SECRET_ACCESS_KEY are required")
			}

			if err := services.SetupR2Bucket(context.Background(), cfg, log); err != nil {
				return err
			}
			fmt.Printf("R2 bucket %q is ready\n", cfg.R2.BucketName)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Report which storage backend tickets will use",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			storage, local, err := services.NewStorageService(context.Background(), cfg, log)
			if err != nil {
				return err
			}

			fmt.Println("Storage Information:")
			fmt.Printf("  R2 Configured: %v\n", cfg.R2Configured())
			fmt.Printf("  R2 Available:  %v\n", storage != services.StorageService(local))
			fmt.Printf("  Bucket Name:   %s\n", cfg.R2.BucketName)
			fmt.Printf("  Local Path:    %s\n", local.BasePath())
			return nil
		},
	})

	return cmd
}
