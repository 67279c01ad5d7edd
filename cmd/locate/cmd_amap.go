package main

import (
	"errors"

	"github.com/couchcryptid/city-locator/internal/amap"
	"github.com/couchcryptid/city-locator/internal/app"
	"github.com/couchcryptid/city-locator/internal/domain"
	"github.com/spf13/cobra"
)

var amapFlags struct {
	toLat, toLon     float64
	fromLat, fromLon float64
	name             string
}

var amapCmd = &cobra.Command{
	Use:   "amap",
	Short: "Print an AMap route link from the current position",
	Long: `Builds an iosamap://path deep link to the target. The start is the
current position unless --from-lat and --from-lon are given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()

		target := domain.Coordinate{Lat: amapFlags.toLat, Lon: amapFlags.toLon}
		var current domain.Coordinate
		if cmd.Flags().Changed("from-lat") && cmd.Flags().Changed("from-lon") {
			current = domain.Coordinate{Lat: amapFlags.fromLat, Lon: amapFlags.fromLon}
		} else {
			ctx, cancel := s.timeout(cmd.Context())
			defer cancel()

			city, err := s.client.Locate(ctx)
			if err != nil {
				return err
			}
			current = city.Fix.Coordinate
		}

		u := amap.BuildPathURL(target, current, amapFlags.name, app.AMapOptions(s.cfg))
		if u == nil {
			return errors.New("no link could be built for this target name")
		}
		return printResult(cmd.OutOrStdout(), map[string]string{"url": u.String()}, u.String())
	},
}

func init() {
	f := amapCmd.Flags()
	f.Float64Var(&amapFlags.toLat, "to-lat", 0, "target latitude")
	f.Float64Var(&amapFlags.toLon, "to-lon", 0, "target longitude")
	f.Float64Var(&amapFlags.fromLat, "from-lat", 0, "start latitude")
	f.Float64Var(&amapFlags.fromLon, "from-lon", 0, "start longitude")
	f.StringVar(&amapFlags.name, "name", "", "target name shown by the map application")
	_ = amapCmd.MarkFlagRequired("to-lat")
	_ = amapCmd.MarkFlagRequired("to-lon")
	_ = amapCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(amapCmd)
}
