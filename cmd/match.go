package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/responder/core/matching"
	"github.com/kilianp07/responder/core/model"
	"github.com/kilianp07/responder/infra/store"
)

var matchOpts struct {
	pool string
	lat  float64
	lon  float64
	typ  string
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Evaluate one incident against a responder pool file and print the decision",
	RunE:  runMatch,
}

func init() {
	f := matchCmd.Flags()
	f.StringVar(&matchOpts.pool, "pool", "", "JSON file with the responder pool")
	f.Float64Var(&matchOpts.lat, "lat", 0, "incident latitude")
	f.Float64Var(&matchOpts.lon, "lon", 0, "incident longitude")
	f.StringVarP(&matchOpts.typ, "type", "t", "general", "incident type")
	_ = matchCmd.MarkFlagRequired("pool")
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st := store.NewMemoryStore()
	if _, err := st.LoadResponders(matchOpts.pool); err != nil {
		return fmt.Errorf("load pool: %w", err)
	}
	pool, err := st.Responders(cmd.Context())
	if err != nil {
		return err
	}
	m := matching.NewMatcher(cfg.Matching.Policy())
	dec := m.Evaluate(model.Coordinate{Lat: matchOpts.lat, Lon: matchOpts.lon}, matchOpts.typ, pool)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(dec)
}
