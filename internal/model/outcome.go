package model

import "time"

// IngestionOutcome aggregates the result of one provider run. It is built
// incrementally while records are processed and returned once at the end;
// it is never persisted.
type IngestionOutcome struct {
	Processed      int      `json:"procesados"`
	Omitted        int      `json:"omitidos"`
	OmittedIDs     []string `json:"omitidos_servicios"`
	TotalAvailable int      `json:"total_disponible"`
	DateFrom       string   `json:"fecha_inicio,omitempty"`
	DateTo         string   `json:"fecha_fin,omitempty"`
}

// AddOmitted counts one omitted record under its case identifier.
func (o *IngestionOutcome) AddOmitted(id string) {
	o.Omitted++
	o.OmittedIDs = append(o.OmittedIDs, id)
}

// CountOmitted counts one omitted record that never yielded an
// identifier, keeping the identifier list free of blanks.
func (o *IngestionOutcome) CountOmitted() {
	o.Omitted++
}

// RunOptions carries the per-run parameters the scheduler (or an operator)
// passes into a provider run.
type RunOptions struct {
	// From/To bound the assignment-date window. Zero values mean the
	// default window (last 24 hours from now).
	From time.Time
	To   time.Time
}

// Window returns the effective date range, defaulting to the last 24 hours.
func (o RunOptions) Window(now time.Time) (time.Time, time.Time) {
	if o.From.IsZero() || o.To.IsZero() {
		return now.Add(-24 * time.Hour), now
	}
	return o.From, o.To
}
