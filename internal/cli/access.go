package cli

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/heartmarshall/labassist-backend/internal/adapter/remote"
	"github.com/heartmarshall/labassist-backend/internal/domain"
)

type accessResult struct {
	Permission   string  `yaml:"permission"`
	Allowed      bool    `yaml:"allowed"`
	Reason       string  `yaml:"reason"`
	GrantedBy    string  `yaml:"grantedBy,omitempty"`
	RequiredRole string  `yaml:"requiredRole,omitempty"`
	LatencyMs    float64 `yaml:"latencyMs"`
}

func newAccessCommand(opts *RootOptions) *cobra.Command {
	var (
		owner          string
		department     string
		timeRestricted bool
	)

	cmd := &cobra.Command{
		Use:   "access <resource> <action>",
		Short: "Ask the server whether you may perform an action",
		Example: `  labchat access threads delete
  labchat access integrations view --owner 5f0c...`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc := domain.ResourceContext{Department: department, TimeRestricted: timeRestricted}
			if owner != "" {
				id, err := uuid.Parse(owner)
				if err != nil {
					return fmt.Errorf("--owner: %w", err)
				}
				rc.OwnerID = &id
			}

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if opts.Offline || cfg.Remote.BaseURL == "" {
				return errOffline
			}
			log := newLogger(opts, cmd.ErrOrStderr())
			client := remote.New(cfg.Remote.BaseURL, cfg.Remote.Timeout, remote.StaticToken(cfg.Remote.Token), log)

			r, err := client.CheckAccess(cmd.Context(), domain.Resource(args[0]), domain.Action(args[1]), rc)
			if err != nil {
				return err
			}
			res := accessResult{
				Permission: r.Permission,
				Allowed:    r.Allowed,
				Reason:     r.Reason,
				GrantedBy:  r.GrantedBy,
				LatencyMs:  r.LatencyMs,
			}
			if r.RequiredRole != nil {
				res.RequiredRole = string(*r.RequiredRole)
			}

			return newPrinter(opts, cmd.OutOrStdout()).print(res, func(w io.Writer) {
				verdict := "denied"
				if res.Allowed {
					verdict = "allowed"
				}
				fmt.Fprintf(w, "%s: %s (%s)\n", res.Permission, verdict, res.Reason)
				if res.RequiredRole != "" {
					fmt.Fprintf(w, "requires role %s\n", res.RequiredRole)
				}
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner id of the resource")
	cmd.Flags().StringVar(&department, "department", "", "department of the resource")
	cmd.Flags().BoolVar(&timeRestricted, "time-restricted", false, "resource is limited to business hours")

	return cmd
}
