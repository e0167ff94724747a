package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wevote/wevoteserver/internal/service/pollinglocations"
)

func newImportPollingLocationsCmd(e *env) *cobra.Command {
	var glob string
	cmd := &cobra.Command{
		Use:   "import-polling-locations",
		Short: "Import polling locations from VIP XML files",
		Long: `Parses every VIP XML file matching --glob in parallel and upserts each
polling location. Defaults to the glob in the [import] section of --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if glob == "" {
				glob = e.file.ImportGlob
			}
			if glob == "" {
				return fmt.Errorf("--glob is required when the config file has no [import] glob")
			}

			ctx := cmd.Context()
			db, err := e.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			res, err := pollinglocations.New(db, e.logger).ImportFromGlob(ctx, glob)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "files=%d saved=%d updated=%d skipped=%d failed=%d\n",
				res.Files, res.Saved, res.Updated, res.Skipped, res.Failed)
			fmt.Fprintln(cmd.OutOrStdout(), res.Status.String())
			return nil
		},
	}
	cmd.Flags().StringVarP(&glob, "glob", "g", "", "file pattern, e.g. /data/vip/*.xml")
	return cmd
}
