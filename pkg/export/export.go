// Package export writes decision log records as JSON, CSV or XLSX.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kilianp07/responder/core/dispatch/logging"
)

// SheetName is the worksheet written by WriteXLSX.
const SheetName = "Decisions"

var headers = []string{
	"timestamp", "incident_id", "incident_type", "severity", "latitude", "longitude",
	"matched", "responder_id", "distance_km", "candidates", "pool_size", "assignment_id", "trigger",
}

// WriteJSON writes the records to w as a JSON array.
func WriteJSON(w io.Writer, recs []logging.LogRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}

// WriteCSV writes one row per record with a header line.
func WriteCSV(w io.Writer, recs []logging.LogRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return err
	}
	for _, r := range recs {
		dist := ""
		if r.Decision.Match != nil {
			dist = strconv.FormatFloat(r.Decision.Match.DistanceKm, 'f', 3, 64)
		}
		row := []string{
			r.Timestamp.Format(time.RFC3339),
			r.IncidentID,
			r.IncidentType,
			string(r.Severity),
			strconv.FormatFloat(r.Location.Lat, 'f', -1, 64),
			strconv.FormatFloat(r.Location.Lon, 'f', -1, 64),
			strconv.FormatBool(r.Decision.Matched()),
			r.ResponderID(),
			dist,
			strconv.Itoa(r.Decision.Summary.Candidates),
			strconv.Itoa(r.PoolSize),
			r.AssignmentID,
			r.Trigger,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the records as a single-sheet workbook.
func WriteXLSX(w io.Writer, recs []logging.LogRecord) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return err
	}
	head := make([]interface{}, len(headers))
	for i, h := range headers {
		head[i] = h
	}
	if err := sw.SetRow("A1", head); err != nil {
		return err
	}
	for i, r := range recs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		var dist interface{}
		if r.Decision.Match != nil {
			dist = r.Decision.Match.DistanceKm
		}
		row := []interface{}{
			r.Timestamp.Format(time.RFC3339),
			r.IncidentID,
			r.IncidentType,
			string(r.Severity),
			r.Location.Lat,
			r.Location.Lon,
			r.Decision.Matched(),
			r.ResponderID(),
			dist,
			r.Decision.Summary.Candidates,
			r.PoolSize,
			r.AssignmentID,
			r.Trigger,
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	return f.Write(w)
}
