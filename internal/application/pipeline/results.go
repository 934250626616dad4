package pipeline

import (
	"time"

	"github.com/sawpanic/fourdrun/internal/box"
	"github.com/sawpanic/fourdrun/internal/draw"
	"github.com/sawpanic/fourdrun/internal/match"
	"github.com/sawpanic/fourdrun/internal/persistence"
	"github.com/sawpanic/fourdrun/internal/scoring"
)

// FetchResult reports one ingestion of the latest results.
type FetchResult struct {
	Date    time.Time `json:"date"`
	Numbers int       `json:"numbers"`
	Added   int       `json:"added"`
	// Skipped is set when the date was already in the history.
	Skipped bool `json:"skipped"`
	Cached  bool `json:"cached"`
}

// ImportResult reports a CSV import.
type ImportResult struct {
	Report draw.NormalizeReport `json:"report"`
	Added  int                  `json:"added"`
}

// PredictResult is a ranked list and the ledger entry it was stored as.
// Prediction is nil when the history was empty.
type PredictResult struct {
	Ranked     []scoring.ScoredCandidate `json:"ranked"`
	Prediction *persistence.Prediction   `json:"prediction,omitempty"`
}

// BoxResult is a built box and its stored record.
type BoxResult struct {
	Result box.Result            `json:"result"`
	Record persistence.BoxRecord `json:"record"`
}

// PredictionSettlement is the candidate-list stats of one prediction.
type PredictionSettlement struct {
	ID    string               `json:"id"`
	Stats match.CandidateStats `json:"stats"`
}

// BoxSettlement is the grid stats of one box.
type BoxSettlement struct {
	ID    string          `json:"id"`
	Stats match.GridStats `json:"stats"`
}

// Settlement reports what Settle scored against one draw.
type Settlement struct {
	DrawDate   time.Time             `json:"draw_date"`
	Winners    []draw.Winner         `json:"winners"`
	Prediction *PredictionSettlement `json:"prediction,omitempty"`
	Boxes      []BoxSettlement       `json:"boxes"`
}

// StepError is a failed step in a run.
type StepError struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}

// RunResult contains the results of one full run.
type RunResult struct {
	ID            string                   `json:"id"`
	Success       bool                     `json:"success"`
	TotalDuration time.Duration            `json:"total_duration"`
	StepDurations map[string]time.Duration `json:"step_durations"`
	Fetch         *FetchResult             `json:"fetch,omitempty"`
	Settlement    *Settlement              `json:"settlement,omitempty"`
	Predict       *PredictResult           `json:"predict,omitempty"`
	Box           *BoxResult               `json:"box,omitempty"`
	Errors        []StepError              `json:"errors"`
}
