package main

import (
	"fmt"
	"time"

	"smartwallet-gateway/config"
	"smartwallet-gateway/internal/service"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:          "token",
	Short:        "Mint a bearer token for the REST API",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Root().PersistentFlags().GetString("config")
		subject, _ := cmd.Flags().GetString("subject")

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if cfg.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is not configured, the REST API accepts requests without tokens")
		}

		tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
		token, expiresAt, err := tokenSvc.Generate(subject)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.Format(time.RFC3339))
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("subject", "", "name of the API caller the token is issued to")
	_ = tokenCmd.MarkFlagRequired("subject")
}
