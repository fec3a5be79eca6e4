package bids

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/nvandessel/nifti2bids/internal/logparse"
	"github.com/nvandessel/nifti2bids/internal/table"
)

// Design is an experimental design.
type Design string

const (
	EventDesign Design = "event"
	BlockDesign Design = "block"
)

// ParseDesign validates a design name.
func ParseDesign(s string) (Design, error) {
	switch d := Design(s); d {
	case EventDesign, BlockDesign:
		return d, nil
	}
	return "", fmt.Errorf("invalid experimental design: %s (must be event or block)", s)
}

var (
	// ErrNoTrialTypes is returned when no trial types are given.
	ErrNoTrialTypes = errors.New("bids: at least one trial type is required")
	// ErrNoTrigger is returned when trigger-relative onsets are requested
	// but the log has no trigger event.
	ErrNoTrigger = errors.New("bids: no scanner trigger found")
)

// Events file columns.
const (
	ColOnset     = "onset"
	ColDuration  = "duration"
	ColTrialType = "trial_type"
	ColResponse  = "response"
)

// responseEventType marks subject responses in Presentation logs.
const responseEventType = "Response"

// Event is one row of a BIDS events file. Times are in seconds; a NaN
// duration is written as "n/a".
type Event struct {
	Onset     float64
	Duration  float64
	TrialType string
	Response  string
}

// PresentationOptions controls PresentationEvents.
type PresentationOptions struct {
	// TrialTypes are code prefixes; a row whose Code starts with one is
	// part of that trial type.
	TrialTypes []string
	Design     Design

	// RestCode ends a block in block designs.
	RestCode string

	// TriggerEventType is the Event Type of scanner pulses ("Pulse").
	TriggerEventType string

	// TriggerRelative makes onsets relative to the first trigger.
	TriggerRelative bool

	// IncludeResponse fills Event.Response from the Stim Type column.
	IncludeResponse bool

	Logger *slog.Logger
}

// presentationRow is the subset of a Presentation row events are built from.
type presentationRow struct {
	eventType string
	code      string
	time      float64
	duration  float64
	stimType  string
}

func presentationRows(t *table.Table) ([]presentationRow, error) {
	for _, col := range []string{logparse.ColEventType, logparse.ColCode, logparse.ColTime} {
		if !t.Has(col) {
			return nil, fmt.Errorf("bids: presentation log: %w: %q", table.ErrNoColumn, col)
		}
	}
	times, err := t.Floats(logparse.ColTime)
	if err != nil {
		return nil, err
	}
	durations := make([]float64, t.Len())
	for i := range durations {
		durations[i] = math.NaN()
	}
	if t.Has(logparse.ColDuration) {
		if durations, err = t.Floats(logparse.ColDuration); err != nil {
			return nil, err
		}
	}

	rows := make([]presentationRow, t.Len())
	for i := range rows {
		r := presentationRow{time: times[i], duration: durations[i]}
		r.eventType, _ = t.Get(i, logparse.ColEventType)
		r.code, _ = t.Get(i, logparse.ColCode)
		if t.Has(logparse.ColStimType) {
			r.stimType, _ = t.Get(i, logparse.ColStimType)
		}
		rows[i] = r
	}
	return rows, nil
}

// matchTrialType returns the longest trial type that prefixes code.
func matchTrialType(code string, trialTypes []string) string {
	best := ""
	for _, tt := range trialTypes {
		if strings.HasPrefix(code, tt) && len(tt) > len(best) {
			best = tt
		}
	}
	return best
}

// PresentationEvents converts a parsed Presentation log into BIDS events.
// Trigger and response rows never start or end an event.
func PresentationEvents(t *table.Table, opts PresentationOptions) ([]Event, error) {
	if len(opts.TrialTypes) == 0 {
		return nil, ErrNoTrialTypes
	}
	if opts.TriggerEventType == "" {
		opts.TriggerEventType = "Pulse"
	}
	if opts.Design == "" {
		opts.Design = EventDesign
	}

	all, err := presentationRows(t)
	if err != nil {
		return nil, err
	}

	reference := 0.0
	if opts.TriggerRelative {
		found := false
		for _, r := range all {
			if r.eventType == opts.TriggerEventType {
				reference, found = r.time, true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w (event type %q)", ErrNoTrigger, opts.TriggerEventType)
		}
	}

	var rows []presentationRow
	for _, r := range all {
		if r.eventType != opts.TriggerEventType && r.eventType != responseEventType {
			rows = append(rows, r)
		}
	}

	var events []Event
	switch opts.Design {
	case EventDesign:
		events = eventDesign(rows, opts)
	case BlockDesign:
		events = blockDesign(rows, opts)
	default:
		return nil, fmt.Errorf("invalid experimental design: %s", opts.Design)
	}

	for i := range events {
		events[i].Onset -= reference
	}
	if opts.Logger != nil {
		opts.Logger.Debug("converted presentation log", "design", opts.Design, "rows", t.Len(), "events", len(events))
	}
	return events, nil
}

func eventDesign(rows []presentationRow, opts PresentationOptions) []Event {
	var events []Event
	for i, r := range rows {
		if matchTrialType(r.code, opts.TrialTypes) == "" {
			continue
		}
		e := Event{Onset: r.time, Duration: r.duration, TrialType: r.code}
		if math.IsNaN(e.Duration) || e.Duration <= 0 {
			e.Duration = math.NaN()
			if i+1 < len(rows) {
				e.Duration = rows[i+1].time - r.time
			}
		}
		if opts.IncludeResponse {
			e.Response = r.stimType
		}
		events = append(events, e)
	}
	return events
}

// blockDesign groups consecutive rows of one trial type into a block that
// ends at the next rest row, the next row of another trial type, or the
// end of the last row.
func blockDesign(rows []presentationRow, opts PresentationOptions) []Event {
	var events []Event
	for i := 0; i < len(rows); {
		tt := matchTrialType(rows[i].code, opts.TrialTypes)
		if tt == "" {
			i++
			continue
		}

		start := rows[i].time
		j := i + 1
		for ; j < len(rows); j++ {
			code := rows[j].code
			if opts.RestCode != "" && code == opts.RestCode {
				break
			}
			if next := matchTrialType(code, opts.TrialTypes); next != "" && next != tt {
				break
			}
		}

		var end float64
		if j < len(rows) {
			end = rows[j].time
		} else {
			last := rows[len(rows)-1]
			end = last.time
			if !math.IsNaN(last.duration) {
				end += last.duration
			}
		}
		events = append(events, Event{Onset: start, Duration: end - start, TrialType: tt})
		i = j
	}
	return events
}

// EPrimeOptions controls EPrimeEvents.
type EPrimeOptions struct {
	OnsetColumn     string
	DurationColumn  string
	TrialTypeColumn string

	// ReferenceColumn holds the time onsets are measured from; the first
	// numeric value in the column is used. Empty keeps absolute times.
	ReferenceColumn string

	// TimeScale divides all times; 0 means 1000 (ms to s).
	TimeScale float64

	// TrialTypes, when set, keeps only rows whose trial type is listed.
	TrialTypes []string
}

// EPrimeEvents converts an E-Prime table into BIDS events. Rows without
// an onset are skipped.
func EPrimeEvents(t *table.Table, opts EPrimeOptions) ([]Event, error) {
	if opts.OnsetColumn == "" || opts.TrialTypeColumn == "" {
		return nil, fmt.Errorf("bids: onset and trial type columns are required")
	}
	scale := opts.TimeScale
	if scale == 0 {
		scale = logparse.EPrimeTimeScale
	}

	onsets, err := t.Floats(opts.OnsetColumn)
	if err != nil {
		return nil, fmt.Errorf("bids: e-prime onsets: %w", err)
	}
	trialTypes, err := t.Column(opts.TrialTypeColumn)
	if err != nil {
		return nil, fmt.Errorf("bids: e-prime trial types: %w", err)
	}
	durations := make([]float64, t.Len())
	for i := range durations {
		durations[i] = math.NaN()
	}
	if opts.DurationColumn != "" {
		if durations, err = t.Floats(opts.DurationColumn); err != nil {
			return nil, fmt.Errorf("bids: e-prime durations: %w", err)
		}
	}

	reference := 0.0
	if opts.ReferenceColumn != "" {
		refs, err := t.Floats(opts.ReferenceColumn)
		if err != nil {
			return nil, fmt.Errorf("bids: e-prime reference: %w", err)
		}
		found := false
		for _, v := range refs {
			if !math.IsNaN(v) {
				reference, found = v, true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w in column %q", ErrNoTrigger, opts.ReferenceColumn)
		}
	}

	keep := map[string]bool{}
	for _, tt := range opts.TrialTypes {
		keep[tt] = true
	}

	var events []Event
	for i, onset := range onsets {
		if math.IsNaN(onset) {
			continue
		}
		if len(keep) > 0 && !keep[trialTypes[i]] {
			continue
		}
		events = append(events, Event{
			Onset:     (onset - reference) / scale,
			Duration:  durations[i] / scale,
			TrialType: trialTypes[i],
		})
	}
	return events, nil
}

// EventsTable lays events out as a BIDS events table. The response column
// is included when withResponse is true.
func EventsTable(events []Event, withResponse bool) *table.Table {
	cols := []string{ColOnset, ColDuration, ColTrialType}
	if withResponse {
		cols = append(cols, ColResponse)
	}
	t := table.New(cols)
	for _, e := range events {
		row := []string{table.FormatFloat(e.Onset), table.FormatFloat(e.Duration), e.TrialType}
		if withResponse {
			row = append(row, e.Response)
		}
		// Rows always match the columns.
		_ = t.AddRow(row)
	}
	return t
}

// PresentationLogToBIDS loads a Presentation log and converts it to events
// in one step.
func PresentationLogToBIDS(path string, parse logparse.PresentationOptions, opts PresentationOptions) ([]Event, error) {
	t, err := logparse.LoadPresentation(path, parse)
	if err != nil {
		return nil, err
	}
	return PresentationEvents(t, opts)
}
