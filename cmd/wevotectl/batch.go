package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wevote/wevoteserver/internal/civic"
	"github.com/wevote/wevoteserver/internal/service/representatives"
	"github.com/wevote/wevoteserver/internal/storage"
)

func (e *env) representativeService(db *storage.DB) *representatives.Service {
	client := civic.NewClient(civic.Config{
		APIKey:  e.cfg.GoogleCivicAPIKey,
		BaseURL: e.cfg.RepresentativesByAddressURL,
		Timeout: e.cfg.CivicTimeout,
		RPS:     e.cfg.CivicRPS,
	})
	return representatives.New(db, client, representatives.Config{
		BatchSize:              e.cfg.RepresentativesBatch,
		Lease:                  e.cfg.BatchLease,
		FailedLocationCooldown: e.cfg.FailedLocationCooldown,
		RefreshInterval:        e.cfg.RepresentativesRefresh,
	}, e.logger)
}

func newCreateBatchCmd(e *env) *cobra.Command {
	var state string
	cmd := &cobra.Command{
		Use:   "create-batch",
		Short: "Queue representatives retrieval for every polling location in a state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if state == "" {
				state = e.file.StateCode
			}
			ctx := cmd.Context()
			db, err := e.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			res, err := e.representativeService(db).CreateRepresentativesBatchProcess(ctx, state)
			if err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("create batch: %s", res.Status)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "batch_process_id=%d state_code=%s\n",
				res.BatchProcess.ID, res.BatchProcess.StateCode)
			return nil
		},
	}
	cmd.Flags().StringVarP(&state, "state", "s", "", "two-letter state code")
	return cmd
}

func newProcessNextCmd(e *env) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "process-next",
		Short: "Run the next open representatives batch",
		Long: `Claims the next open representatives batch process and retrieves one batch of
its polling locations from Google Civic. With --all, keeps going until no open
batch process remains.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := e.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			svc := e.representativeService(db)
			for {
				res, err := svc.ProcessNextRepresentatives(ctx)
				if err != nil {
					return err
				}
				if !res.Claimed {
					fmt.Fprintln(cmd.OutOrStdout(), res.Status.String())
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "batch_process_id=%d state_code=%s retrieved=%d failed=%d completed=%t\n",
					res.BatchProcess.ID, res.BatchProcess.StateCode, res.Retrieved, res.Failed, res.Completed)
				if !all {
					return nil
				}
			}
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "repeat until no open batch process remains")
	return cmd
}
