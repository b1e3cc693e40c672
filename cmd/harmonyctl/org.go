package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var orgURNs []string

// orgCmd groups the organization helpers
var orgCmd = &cobra.Command{
	Use:   "org",
	Short: "Manage organizations registered on the node",
}

var orgCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Register an organization",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.TrimSpace(args[0])
		if name == "" {
			return fmt.Errorf("organization name must not be blank")
		}

		pg, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer pg.Close()

		org, err := pg.CreateOrganization(cmd.Context(), name)
		if err != nil {
			return err
		}
		if len(orgURNs) > 0 {
			if err := pg.UpdateOrganization(cmd.Context(), org.ID, org.Name, orgURNs); err != nil {
				return fmt.Errorf("setting identifiers: %w", err)
			}
		}
		logger.Info("organization created", "organization_id", org.ID, "identifiers", len(orgURNs))
		return json.NewEncoder(cmd.OutOrStdout()).Encode(org)
	},
}

var orgFindCmd = &cobra.Command{
	Use:   "find [name]",
	Short: "Find organizations by identifier URN or name",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var name *string
		if len(args) == 1 {
			name = &args[0]
		}

		pg, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer pg.Close()

		orgs, err := pg.SearchOrganizations(cmd.Context(), name, orgURNs)
		if err != nil {
			return err
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(orgs)
	},
}

func init() {
	orgCreateCmd.Flags().StringSliceVar(&orgURNs, "urn", nil, "company identifier URN (repeatable)")
	orgFindCmd.Flags().StringSliceVar(&orgURNs, "urn", nil, "company identifier URN (repeatable)")
	orgCmd.AddCommand(orgCreateCmd, orgFindCmd)
	rootCmd.AddCommand(orgCmd)
}
