package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/emilythestrangee/blogsocial/backend/internal/config"
	"github.com/emilythestrangee/blogsocial/backend/internal/database"
	"github.com/emilythestrangee/blogsocial/backend/internal/server"
	"github.com/emilythestrangee/blogsocial/backend/internal/social"
)

var (
	adminEmail    string
	adminUsername string
	adminName     string
	adminPassword string

	rootCmd = &cobra.Command{
		Use:           "blogsocial",
		Short:         "Minimalist social blogging API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until interrupted",
		RunE:  runServe,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE:  runMigrate,
	}

	createAdminCmd = &cobra.Command{
		Use:   "create-admin",
		Short: "Seed an admin account unless one already exists",
		RunE:  runCreateAdmin,
	}
)

func init() {
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "admin@example.com", "admin email")
	createAdminCmd.Flags().StringVar(&adminUsername, "username", "admin", "admin username")
	createAdminCmd.Flags().StringVar(&adminName, "name", "Administrator", "admin display name")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", os.Getenv("ADMIN_PASSWORD"), "admin password (defaults to $ADMIN_PASSWORD)")

	rootCmd.AddCommand(serveCmd, migrateCmd, createAdminCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// open loads configuration and connects to a migrated database.
func open() (*config.Config, *slog.Logger, database.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	log := cfg.NewLogger()
	slog.SetDefault(log)

	db, err := database.New(database.Options{URL: cfg.DatabaseURL, LogLevel: cfg.DBLogLevel, Logger: log})
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	return cfg, log, db, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, db, err := open()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.NewServer(cfg, db, log).Run(ctx)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	_, log, db, err := open()
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("schema up to date")
	return nil
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	if adminPassword == "" {
		return fmt.Errorf("--password or ADMIN_PASSWORD is required")
	}
	cfg, log, db, err := open()
	if err != nil {
		return err
	}
	defer db.Close()

	svc := social.New(db.GetDB(), social.Options{FeedLimit: cfg.FeedLimit, Logger: log})
	created, err := svc.EnsureAdmin(context.WithoutCancel(cmd.Context()), social.Registration{
		Email:    adminEmail,
		Username: adminUsername,
		Name:     adminName,
		Password: adminPassword,
	})
	if err != nil {
		return err
	}
	if !created {
		log.Info("an admin account already exists, nothing to do")
	}
	return nil
}
