package services

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

type ErrorDetail struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// TypeStats zählt die Ergebnisse eines Content-Typs.
type TypeStats struct {
	Found        int           `json:"found"`
	Synced       int           `json:"synced"`
	Skipped      int           `json:"skipped"`
	Errors       int           `json:"errors"`
	ErrorDetails []ErrorDetail `json:"error_details,omitempty"`
}

func (s *TypeStats) fail(path, message string) {
	s.Errors++
	s.ErrorDetails = append(s.ErrorDetails, ErrorDetail{Path: path, Message: message})
}

// SyncReport ist das Ergebnis eines Sync-Laufs.
type SyncReport struct {
	StartedAt     time.Time             `json:"started_at"`
	Elapsed       time.Duration         `json:"elapsed_ns"`
	DryRun        bool                  `json:"dry_run"`
	Kinds         []string              `json:"kinds"`
	Stats         map[string]*TypeStats `json:"stats"`
	Relationships int                   `json:"relationships"`
}

func newSyncReport(dryRun bool, startedAt time.Time) *SyncReport {
	return &SyncReport{StartedAt: startedAt, DryRun: dryRun, Stats: map[string]*TypeStats{}}
}

func (r *SyncReport) stats(kind string) *TypeStats {
	s, ok := r.Stats[kind]
	if !ok {
		s = &TypeStats{}
		r.Stats[kind] = s
		r.Kinds = append(r.Kinds, kind)
	}
	return s
}

func (r *SyncReport) Totals() TypeStats {
	var t TypeStats
	for _, s := range r.Stats {
		t.Found += s.Found
		t.Synced += s.Synced
		t.Skipped += s.Skipped
		t.Errors += s.Errors
	}
	return t
}

// HasErrors ist true, sobald irgendeine Datei oder ein Batch fehlgeschlagen ist.
func (r *SyncReport) HasErrors() bool {
	return r.Totals().Errors > 0
}

func (r *SyncReport) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Print schreibt die Zusammenfassung als Tabelle, mit verbose zusätzlich alle Fehlerdetails.
func (r *SyncReport) Print(w io.Writer, verbose bool) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tFOUND\tSYNCED\tSKIPPED\tERRORS")
	for _, kind := range r.Kinds {
		s := r.Stats[kind]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", kind, s.Found, s.Synced, s.Skipped, s.Errors)
	}
	t := r.Totals()
	fmt.Fprintf(tw, "total\t%d\t%d\t%d\t%d\n", t.Found, t.Synced, t.Skipped, t.Errors)
	tw.Flush()

	mode := ""
	if r.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "\nfinished in %s%s\n", r.Elapsed.Round(time.Millisecond), mode)

	if !verbose {
		return
	}
	for _, kind := range r.Kinds {
		for _, d := range r.Stats[kind].ErrorDetails {
			fmt.Fprintf(w, "  [%s] %s: %s\n", kind, d.Path, d.Message)
		}
	}
}
