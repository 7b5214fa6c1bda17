package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	postgresRepo "github.com/iho/loanex/internal/adapter/repository/postgres"
	"github.com/iho/loanex/internal/domain"
	"github.com/iho/loanex/internal/infrastructure/config"
	"github.com/iho/loanex/internal/infrastructure/postgres"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "loanex-cli",
		Short: "Loanex CLI tool",
		Long:  `A command line interface for operating the Loanex loan marketplace.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the Loanex API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(migrateCmd(), userCmd(), settleCmd(), ledgerCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	var migrationsPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema migrations",
	}
	cmd.PersistentFlags().StringVar(&migrationsPath, "path", "migrations", "Path to migration files")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := postgres.RunMigrations(cfg.DatabaseURL, migrationsPath); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := postgres.RunMigrationsDown(cfg.DatabaseURL, migrationsPath); err != nil {
				return err
			}
			fmt.Println("migrations rolled back")
			return nil
		},
	})

	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User provisioning",
	}

	var (
		email string
		name  string
		role  string
	)

	createCmd := &cobra.Command{
		Use:   "create <id>",
		Short: "Register a marketplace participant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userRole := domain.Role(strings.ToLower(role))
			if !userRole.IsValid() {
				return fmt.Errorf("invalid role %q, want admin, creditor, debtor or system", role)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, 2, 1)
			if err != nil {
				return err
			}
			defer pool.Close()

			now := time.Now().UTC()
			user := &domain.User{
				ID:        args[0],
				Email:     email,
				Name:      name,
				Role:      userRole,
				CreatedAt: now,
				UpdatedAt: now,
				Active:    true,
			}

			if err := postgresRepo.NewUserRepository(pool).Create(ctx, user); err != nil {
				return err
			}

			fmt.Printf("created %s user %s\n", user.Role, user.ID)
			return nil
		},
	}
	createCmd.Flags().StringVar(&email, "email", "", "User email")
	createCmd.Flags().StringVar(&name, "name", "", "Display name")
	createCmd.Flags().StringVar(&role, "role", "debtor", "Role: admin, creditor, debtor or system")
	_ = createCmd.MarkFlagRequired("email")

	cmd.AddCommand(createCmd)

	return cmd
}

func settleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "settle <interval>",
		Short: "Trigger a settlement run (DAY, MONTH or ONE_TIME)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			interval := strings.ToUpper(args[0])
			body := postJSON(fmt.Sprintf("/api/v1/settlements/%s/run", interval))

			var report map[string]any
			if err := json.Unmarshal(body, &report); err != nil {
				fmt.Printf("Failed to parse response: %v\n", err)
				os.Exit(1)
			}

			fmt.Printf("Settlement run finished\n")
			for _, field := range []string{"interval", "matched", "settled", "closed", "skipped", "failed"} {
				fmt.Printf("%s: %v\n", field, report[field])
			}
		},
	}
}

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "verify",
		Short: "Verify every balance log chain",
		Run: func(cmd *cobra.Command, args []string) {
			body := postJSON("/api/v1/ledger/verify")

			var result map[string]any
			if err := json.Unmarshal(body, &result); err != nil {
				fmt.Printf("Failed to parse response: %v\n", err)
				os.Exit(1)
			}

			broken, _ := result["broken"].([]any)
			if len(broken) > 0 {
				fmt.Printf("Verification FAILED\nOwners: %v\nBroken chains: %v\n", result["owners"], broken)
				os.Exit(1)
			}

			fmt.Printf("Verification PASSED\nOwners: %v\n", result["owners"])
		},
	})

	return cmd
}

func postJSON(path string) []byte {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Post(baseURL+path, "application/json", nil)
	if err != nil {
		fmt.Printf("Error making request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		fmt.Printf("Request FAILED (Status: %d)\nResponse: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	return body
}
