package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/wevote/wevoteserver/internal/auth"
	"github.com/wevote/wevoteserver/internal/model"
)

// cliCreator is recorded as created_by for keys minted from the command line.
const cliCreator = "wevotectl"

func newAPIKeyCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api-key",
		Short: "Manage api_key credentials for /apis/v1",
	}
	cmd.AddCommand(newAPIKeyCreateCmd(e), newAPIKeyListCmd(e), newAPIKeyRevokeCmd(e))
	return cmd
}

func newAPIKeyCreateCmd(e *env) *cobra.Command {
	var label string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Mint a key and print it once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := e.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			rawKey, prefix, err := model.GenerateRawKey()
			if err != nil {
				return err
			}
			hash, err := auth.HashAPIKey(rawKey)
			if err != nil {
				return err
			}
			created, err := db.CreateAPIKey(ctx, model.APIKey{
				Prefix:    prefix,
				KeyHash:   hash,
				Label:     label,
				CreatedBy: cliCreator,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "id=%s\napi_key=%s\n", created.ID, rawKey)
			return nil
		},
	}
	cmd.Flags().StringVarP(&label, "label", "l", "", "human-readable label")
	_ = cmd.MarkFlagRequired("label")
	return cmd
}

func newAPIKeyListCmd(e *env) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List keys without their secrets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := e.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			keys, err := db.ListAPIKeys(ctx, limit, offset)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPREFIX\tLABEL\tCREATED_BY\tREVOKED")
			for _, k := range keys {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", k.ID, k.Prefix, k.Label, k.CreatedBy, k.RevokedAt != nil)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	return cmd
}

func newAPIKeyRevokeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke a key by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid key id %q: %w", args[0], err)
			}
			ctx := cmd.Context()
			db, err := e.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.RevokeAPIKey(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", id)
			return nil
		},
	}
}
