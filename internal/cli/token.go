package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/heartmarshall/labassist-backend/internal/auth"
	"github.com/heartmarshall/labassist-backend/internal/domain"
)

type tokenResult struct {
	Token     string    `yaml:"token"`
	Subject   string    `yaml:"subject"`
	Roles     []string  `yaml:"roles"`
	ExpiresAt time.Time `yaml:"expiresAt"`
}

func newTokenCommand(opts *RootOptions) *cobra.Command {
	var (
		userID    string
		email     string
		roles     []string
		attrs     domain.UserAttributes
		ttl       time.Duration
		clearance string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development bearer token",
		Long: `Issue a bearer token signed with auth.jwt_secret from the config. Meant for
development and tests; production tokens come from the identity provider.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret is not configured")
			}
			if ttl <= 0 {
				ttl = cfg.Auth.AccessTokenTTL
			}

			user := domain.UserContext{Email: email, Attributes: attrs}
			if userID == "" {
				user.ID = uuid.New()
			} else if user.ID, err = uuid.Parse(userID); err != nil {
				return fmt.Errorf("--user: %w", err)
			}
			user.Attributes.Clearance = domain.Sensitivity(clearance)
			for _, r := range roles {
				user.Roles = append(user.Roles, domain.Role(r))
			}

			issuedAt := time.Now()
			token, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, ttl, nil).Issue(user)
			if err != nil {
				return err
			}

			res := tokenResult{Token: token, Subject: user.ID.String(), Roles: roles, ExpiresAt: issuedAt.Add(ttl).UTC().Truncate(time.Second)}
			return newPrinter(opts, cmd.OutOrStdout()).print(res, func(w io.Writer) {
				fmt.Fprintln(w, res.Token)
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "subject user id (default random)")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringSliceVar(&roles, "role", []string{string(domain.RoleViewer)}, "role to grant (repeatable)")
	cmd.Flags().StringVar(&attrs.Department, "department", "", "department attribute")
	cmd.Flags().StringVar(&attrs.Site, "site", "", "site attribute")
	cmd.Flags().StringVar(&clearance, "clearance", "", "clearance attribute, e.g. CONFIDENTIAL")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default auth.access_token_ttl)")

	return cmd
}
