// Command tokengen mints session tokens for local testing.  The secret
// defaults to JWT_SECRET from the environment or a .env file.
//
//	go run ./cmd/tokengen --user alice --role BUYER
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/iliyamo/ticket-sale/internal/session"
)

// tokenOptions holds flags for the root command.
type tokenOptions struct {
	User   string
	Role   string
	TTL    time.Duration
	Secret string
}

func newRootCommand() *cobra.Command {
	opts := &tokenOptions{}

	cmd := &cobra.Command{
		Use:   "tokengen",
		Short: "Mint a signed session token",
		Long: `Mint an HS256 session token accepted by the ticket-sale server.

Example:
  tokengen --user alice --role BUYER
  tokengen --user ops --role OPERATOR --ttl 8h`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return mint(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.User, "user", "", "user id carried in the sub claim (required)")
	cmd.Flags().StringVar(&opts.Role, "role", session.RoleBuyer, "OPERATOR or BUYER")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", time.Hour, "token lifetime")
	cmd.Flags().StringVar(&opts.Secret, "secret", os.Getenv("JWT_SECRET"), "HMAC secret")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func mint(cmd *cobra.Command, opts *tokenOptions) error {
	role := strings.ToUpper(opts.Role)
	if role != session.RoleOperator && role != session.RoleBuyer {
		return fmt.Errorf("unknown role %q", opts.Role)
	}
	if opts.Secret == "" {
		return fmt.Errorf("no secret: set JWT_SECRET or pass --secret")
	}
	tok, err := session.NewSigner(opts.Secret).Issue(opts.User, role, opts.TTL)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), tok.Token)
	return err
}

func main() {
	_ = godotenv.Load()
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tokengen:", err)
		os.Exit(1)
	}
}
