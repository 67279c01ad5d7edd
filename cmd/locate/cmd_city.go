package main

import (
	"github.com/spf13/cobra"
)

var cityCmd = &cobra.Command{
	Use:   "city",
	Short: "Print the city of the current position",
	Long: `Prompts for when-in-use authorization if it has not been decided yet,
acquires one fix and prints the resolved city.

$ PROVIDER=static FIXES_FILE=cmd/locate/testdata/hangzhou.yaml locate city
Hangzhou
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()

		ctx, cancel := s.timeout(cmd.Context())
		defer cancel()

		city, err := s.client.Locate(ctx)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), city, city.CityName)
	},
}

func init() {
	rootCmd.AddCommand(cityCmd)
}
