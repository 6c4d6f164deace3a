package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/antsim/internal/rollout"
)

type ExportData struct {
	ID           string             `json:"id"`
	Controller   string             `json:"controller"`
	Dt           float64            `json:"dt"`
	Steps        int                `json:"steps"`
	TraceEnv     int                `json:"trace_env"`
	Times        []float64          `json:"times"`
	MeanReward   []float64          `json:"mean_reward"`
	MeanHeight   []float64          `json:"mean_height"`
	Observations [][]float64        `json:"observations"`
	Actions      [][]float64        `json:"actions"`
	Metrics      map[string]float64 `json:"metrics"`
}

func NewExportData(meta *RunMetadata, result *rollout.Result) ExportData {
	return ExportData{
		ID:           meta.ID,
		Controller:   meta.Controller,
		Dt:           meta.Dt,
		Steps:        result.StepsTaken,
		TraceEnv:     result.TraceEnv,
		Times:        result.Times,
		MeanReward:   result.MeanReward,
		MeanHeight:   result.MeanHeight,
		Observations: result.Observations,
		Actions:      result.Actions,
		Metrics:      result.Metrics,
	}
}

func ExportJSON(path string, data ExportData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return EncodeJSON(file, data)
}

func EncodeJSON(w io.Writer, data ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
