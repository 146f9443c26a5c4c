package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/responder/core/dispatch/logging"
	"github.com/kilianp07/responder/pkg/export"
)

var exportOpts struct {
	log       string
	format    string
	out       string
	since     time.Duration
	typ       string
	responder string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the decision log as CSV, XLSX or JSON",
	RunE:  runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportOpts.log, "log", "", "decision log path (defaults to logging.path)")
	f.StringVarP(&exportOpts.format, "format", "f", "csv", "csv, xlsx or json")
	f.StringVarP(&exportOpts.out, "out", "o", "", "output file (defaults to stdout)")
	f.DurationVar(&exportOpts.since, "since", 0, "only records newer than this duration")
	f.StringVar(&exportOpts.typ, "type", "", "filter by incident type")
	f.StringVar(&exportOpts.responder, "responder", "", "filter by selected responder")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	lc := cfg.Logging
	if exportOpts.log != "" {
		lc.Path = exportOpts.log
	}
	if lc.Backend == "none" {
		return fmt.Errorf("decision log disabled")
	}
	store, err := lc.Open()
	if err != nil {
		return fmt.Errorf("open decision log: %w", err)
	}
	defer func() { _ = store.Close() }()

	q := logging.LogQuery{IncidentType: exportOpts.typ, ResponderID: exportOpts.responder}
	if exportOpts.since > 0 {
		q.Start = time.Now().Add(-exportOpts.since)
	}
	recs, err := store.Query(cmd.Context(), q)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOpts.out != "" {
		f, err := os.Create(exportOpts.out)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	switch strings.ToLower(exportOpts.format) {
	case "csv":
		return export.WriteCSV(w, recs)
	case "xlsx":
		return export.WriteXLSX(w, recs)
	case "json":
		return export.WriteJSON(w, recs)
	}
	return fmt.Errorf("unknown format %q", exportOpts.format)
}
