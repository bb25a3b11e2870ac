package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/esotap/eso"
)

func newRetrieveCmd(opts *options) *cobra.Command {
	retrieveOpts := eso.RetrieveOptions{}

	cmd := &cobra.Command{
		Use:   "retrieve DP_ID...",
		Short: "download data products from the archive",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, shutdown, err := opts.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer shutdown()

			files, err := client.Retrieve(cmd.Context(), args, retrieveOpts)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Println(f)
			}
			// With --calib the file list includes associated
			// calibrations, so the count check only applies to
			// plain retrievals.
			if retrieveOpts.WithCalib == "" && len(files) < len(args) {
				return fmt.Errorf("downloaded %d of %d requested products", len(files), len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&retrieveOpts.Destination, "dest", "d", "",
		"destination directory (default: the cache directory)")
	cmd.Flags().StringVar(&retrieveOpts.WithCalib, "calib", "",
		`also download associated calibrations: "raw" or "processed"`)
	cmd.Flags().BoolVar(&retrieveOpts.Overwrite, "overwrite", false,
		"re-download files already present")
	cmd.Flags().BoolVar(&retrieveOpts.SkipDecompress, "keep-compressed", false,
		"do not decompress .fits.gz / .fits.Z downloads")
	cmd.Flags().BoolVar(&retrieveOpts.SaveXML, "save-xml", false,
		"save CalSelector association trees next to the downloads")

	return cmd
}
