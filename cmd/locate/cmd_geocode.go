package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode <address>",
	Short: "Resolve a free-form address to its city",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()

		ctx, cancel := s.timeout(cmd.Context())
		defer cancel()

		city, err := s.client.Geocode(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), city, city.CityName)
	},
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
}
