package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fkhayef/splitdraft/pkg/middleware"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint a bearer token for a user",
		Long: `Token signs a JWT for the given user with JWT_SECRET (or --secret), for
calling the API when AUTH_MODE=jwt.`,
		Args: cobra.ExactArgs(1),
		RunE: runToken,
	}

	cmd.Flags().String("secret", "", "signing secret (default: $JWT_SECRET)")
	cmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")

	return cmd
}

func runToken(cmd *cobra.Command, args []string) error {
	secret, _ := cmd.Flags().GetString("secret")
	ttl, _ := cmd.Flags().GetDuration("ttl")
	if secret == "" {
		secret = os.Getenv("JWT_SECRET")
	}
	if secret == "" {
		return errors.New("no signing secret: set JWT_SECRET or pass --secret")
	}

	token, err := middleware.NewJWTManager(secret, ttl).Generate(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
