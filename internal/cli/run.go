package cli

import (
	"log/slog"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/kilupskalvis/cocokit/internal/dataset"
	"github.com/kilupskalvis/cocokit/internal/models"
)

// loadDataset reads an annotation file or exits.
func (c *cmdContext) loadDataset(path, imageDir string) *dataset.Dataset {
	ds, err := dataset.Load(c.Fs, path, imageDir)
	if err != nil {
		exitError("%v", err)
	}
	return ds
}

// saveDataset writes ds to path or exits.
func (c *cmdContext) saveDataset(ds *dataset.Dataset, path string) {
	if err := ds.Save(c.Fs, path); err != nil {
		exitError("failed to save %s: %v", path, err)
	}
}

// outputOr returns out, or fallback when out is empty.
func outputOr(out, fallback string) string {
	if out != "" {
		return out
	}
	return fallback
}

// runRecord describes one mutating command for the run log.
type runRecord struct {
	Operation string
	Args      []string
	Input     string
	Output    string
	Before    *dataset.Dataset
	After     *dataset.Dataset
	Report    any
}

// record appends the run to the project's run log. Outside a project it
// does nothing. A failure to record is logged, never fatal, since the
// output file has already been written.
func (c *cmdContext) record(r runRecord) {
	if c.Store == nil {
		return
	}
	run := &models.Run{
		Operation: r.Operation,
		Args:      r.Args,
		Input:     r.Input,
		Output:    r.Output,
	}
	if r.Before != nil {
		if fp, err := r.Before.Fingerprint(); err == nil {
			run.FingerprintBefore = fp
		}
	}
	if r.After != nil {
		if fp, err := r.After.Fingerprint(); err == nil {
			run.FingerprintAfter = fp
		}
	}
	if r.Report != nil {
		data, err := json.Marshal(r.Report)
		if err != nil {
			slog.Warn("failed to encode run report", "operation", r.Operation, "error", err)
		} else {
			run.Report = data
		}
	}
	if err := c.Store.RecordRun(run); err != nil {
		slog.Warn("failed to record run", "operation", r.Operation, "error", err)
		return
	}
	slog.Debug("run recorded", "id", run.ID, "operation", run.Operation)
	color.New(color.FgYellow).Printf("run %s\n", run.ShortID())
}
