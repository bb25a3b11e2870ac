package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInstrumentsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "instruments",
		Short: "list the instruments queryable in the archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, shutdown, err := opts.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer shutdown()

			instruments, err := client.ListInstruments(cmd.Context(), !opts.noCache)
			if err != nil {
				return err
			}
			for _, instrument := range instruments {
				fmt.Println(instrument)
			}
			return nil
		},
	}
}

func newCollectionsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "list the reduced-data collections in the archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, shutdown, err := opts.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer shutdown()

			collections, err := client.ListCollections(cmd.Context(), !opts.noCache)
			if err != nil {
				return err
			}
			for _, collection := range collections {
				fmt.Println(collection)
			}
			return nil
		},
	}
}
