package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wevote/wevoteserver/internal/model"
)

func newVoterCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voter",
		Short: "Manage voters that can sign in to the admin surface",
	}
	cmd.AddCommand(newVoterCreateCmd(e))
	return cmd
}

// voterWithRole returns a voter holding role. It fails on unknown roles.
func voterWithRole(role model.VoterRole) (model.Voter, error) {
	var v model.Voter
	switch role {
	case model.RoleAdmin:
		v.IsAdmin = true
	case model.RolePoliticalDataManager:
		v.IsPoliticalDataManager = true
	case model.RoleVerifiedVolunteer:
		v.IsVerifiedVolunteer = true
	case model.RolePoliticalDataViewer:
		v.IsPoliticalDataViewer = true
	case model.RolePartnerOrganization:
		v.IsPartnerOrganization = true
	default:
		return v, fmt.Errorf("unknown role %q", role)
	}
	return v, nil
}

func newVoterCreateCmd(e *env) *cobra.Command {
	var deviceID, role, first, last, email string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a voter with one role, linked to a voter_device_id",
		Long: `Creates a voter with the given role and links it to --device-id. The device id
can then be exchanged for an admin token at POST /admin/token.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := voterWithRole(model.VoterRole(role))
			if err != nil {
				return err
			}
			v.FirstName, v.LastName, v.Email = first, last, email

			ctx := cmd.Context()
			db, err := e.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			created, err := db.CreateVoter(ctx, v, deviceID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "voter_we_vote_id=%s role=%s\n", created.WeVoteID, role)
			return nil
		},
	}
	cmd.Flags().StringVar(&deviceID, "device-id", "", "voter_device_id to link")
	cmd.Flags().StringVar(&role, "role", string(model.RoleAdmin), "admin, political_data_manager, verified_volunteer, political_data_viewer or partner_organization")
	cmd.Flags().StringVar(&first, "first-name", "", "")
	cmd.Flags().StringVar(&last, "last-name", "", "")
	cmd.Flags().StringVar(&email, "email", "", "")
	_ = cmd.MarkFlagRequired("device-id")
	return cmd
}
