package export

import (
	"fmt"
	"time"

	"github.com/xhhuango/json"

	"github.com/bcdannyboy/stochsim/risk"
	"github.com/bcdannyboy/stochsim/simulation"
	"github.com/bcdannyboy/stochsim/stats"
)

// Convergence is the diagnostics block of a Report.
type Convergence struct {
	StandardError       float64 `json:"standard_error"`
	EffectiveSampleSize float64 `json:"effective_sample_size"`
	MCStandardError     float64 `json:"mc_standard_error"`
	Converged           bool    `json:"converged"`
}

// Report is the JSON document describing one simulation run end to end.
type Report struct {
	Model       string         `json:"model"`
	GeneratedAt time.Time      `json:"generated_at"`
	NumPaths    int            `json:"num_paths"`
	NumSteps    int            `json:"num_steps"`
	Dt          float64        `json:"dt"`
	ElapsedSec  float64        `json:"elapsed_seconds"`
	Terminal    stats.Summary  `json:"terminal"`
	Returns     *stats.Summary `json:"returns,omitempty"`
	Risk        *risk.Report   `json:"risk,omitempty"`
	Convergence *Convergence   `json:"convergence,omitempty"`
}

// NewReport seeds a Report from a finished run. Risk and convergence blocks
// are attached by the caller once computed.
func NewReport(res *simulation.Result) *Report {
	r := &Report{
		Model:       res.Model,
		GeneratedAt: time.Now().UTC(),
		NumPaths:    res.NumPaths,
		NumSteps:    res.NumSteps,
		Dt:          res.Dt,
		ElapsedSec:  res.Elapsed.Seconds(),
		Terminal:    res.TerminalSummary,
	}
	if res.Returns != nil {
		returns := res.ReturnSummary
		r.Returns = &returns
	}
	return r
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}
