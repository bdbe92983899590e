package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/san-kum/mbsim/internal/config"
	"github.com/san-kum/mbsim/internal/dynamo"
	"github.com/san-kum/mbsim/internal/sim"
)

type ExportData struct {
	Scene      string                `json:"scene"`
	Integrator string                `json:"integrator"`
	Dt         float64               `json:"dt"`
	Duration   float64               `json:"duration"`
	Steps      int                   `json:"steps"`
	Bodies     []string              `json:"bodies"`
	Times      []float64             `json:"times"`
	States     [][]float64           `json:"states"`
	Warnings   []dynamo.DriftWarning `json:"warnings,omitempty"`
	Metrics    map[string]float64    `json:"metrics"`
}

func NewExportData(cfg *config.Config, result *sim.Result) ExportData {
	data := ExportData{
		Scene:      cfg.Scene,
		Integrator: cfg.Integrator,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Steps:      result.StepsTaken,
		Times:      result.Times,
		States:     make([][]float64, len(result.States)),
		Warnings:   result.Warnings,
		Metrics:    result.Metrics,
	}
	for _, b := range cfg.Bodies {
		data.Bodies = append(data.Bodies, b.Name)
	}
	for i, s := range result.States {
		data.States[i] = s
	}
	return data
}

// ExportJSON writes an indented JSON document of the run to w.
func ExportJSON(w io.Writer, cfg *config.Config, result *sim.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewExportData(cfg, result))
}

// WriteCSV writes one row per recorded state: time, then BodyStateDim columns
// per body.
func WriteCSV(out io.Writer, bodies []string, result *sim.Result) error {
	w := csv.NewWriter(out)

	if err := w.Write(Header(bodies)); err != nil {
		return err
	}

	for i := range result.States {
		row := []string{strconv.FormatFloat(result.Times[i], 'g', -1, 64)}
		for _, val := range result.States[i] {
			row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
