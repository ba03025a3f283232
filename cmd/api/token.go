package main

import (
	"fmt"
	"time"

	"github.com/akolanti/filebook/internal/auth"
	"github.com/akolanti/filebook/internal/config"
	"github.com/akolanti/filebook/internal/domain/filebookModel"
	"github.com/spf13/cobra"
)

var (
	tokenSubject string
	tokenRole    string
	tokenPlan    string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign a bearer token for local development",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.Load(configPath)
		if err != nil {
			return err
		}
		token, err := auth.NewVerifier(settings.JWTSecret).Issue(filebookModel.Session{
			UserId: tokenSubject,
			Role:   filebookModel.UserRole(tokenRole),
			Plan:   filebookModel.Plan(tokenPlan),
		}, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "sub", "dev-user", "user id")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(filebookModel.RoleUser), "admin or user")
	tokenCmd.Flags().StringVar(&tokenPlan, "plan", string(filebookModel.PlanFree), "FREE or PRO")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}
