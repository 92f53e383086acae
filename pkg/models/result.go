package models

import (
	"fmt"
	"time"
)

// PlaceholderPower is the reading substituted for a frequency missing from
// either set so result arrays stay aligned with the plan. It never enters
// an aggregate.
const PlaceholderPower = -80.0

// ResultPoint is the outcome at one planned frequency
type ResultPoint struct {
	Frequency   Frequency `json:"frequency" doc:"Frequency in Hz"`
	Baseline    float64   `json:"baseline" doc:"Baseline power in dBm"`
	Hat         float64   `json:"hat" doc:"Power with hat in dBm"`
	Attenuation float64   `json:"attenuation" doc:"Baseline minus hat in dB"`
	Valid       bool      `json:"valid" doc:"Both readings were recorded"`
}

// BandEffectiveness is the mean attenuation per RF band, 0 for empty bands
type BandEffectiveness struct {
	HF  float64 `json:"hf_band" doc:"Mean attenuation 2-30 MHz"`
	VHF float64 `json:"vhf_band" doc:"Mean attenuation 30-300 MHz"`
	UHF float64 `json:"uhf_band" doc:"Mean attenuation 300-3000 MHz"`
	SHF float64 `json:"shf_band" doc:"Mean attenuation 3000-5900 MHz"`
}

// Extremum is an attenuation value and where it occurred
type Extremum struct {
	Value     float64   `json:"value" doc:"Attenuation in dB"`
	Frequency Frequency `json:"frequency" doc:"Frequency in Hz"`
}

// SessionResult is the computed outcome of one baseline+hat session
type SessionResult struct {
	ID                 string            `json:"id" doc:"Result identifier"`
	SessionID          string            `json:"session_id" doc:"Measurement session identifier"`
	ContestantID       int64             `json:"contestant_id" doc:"Contestant identifier"`
	HatType            HatType           `json:"hat_type" enum:"classic,hybrid" doc:"Hat category"`
	Points             []ResultPoint     `json:"points" doc:"Per-frequency readings aligned with the plan"`
	AverageAttenuation float64           `json:"average_attenuation" doc:"Mean attenuation over valid frequencies"`
	Bands              BandEffectiveness `json:"effectiveness" doc:"Mean attenuation per RF band"`
	Peak               Extremum          `json:"max_attenuation" doc:"Highest attenuation"`
	Trough             Extremum          `json:"min_attenuation" doc:"Lowest attenuation"`
	IsBestScore        bool              `json:"is_best_score" doc:"Best score for this contestant and hat type"`
	PreviousBest       *float64          `json:"previous_best,omitempty" doc:"Best score before this result"`
	ValidCount         int               `json:"valid_frequencies" doc:"Frequencies with both readings"`
	CreatedAt          time.Time         `json:"created_at" doc:"When the result was finalized"`
}

// ValidPoints returns only the points with both readings
func (r *SessionResult) ValidPoints() []ResultPoint {
	out := make([]ResultPoint, 0, r.ValidCount)
	for _, p := range r.Points {
		if p.Valid {
			out = append(out, p)
		}
	}
	return out
}

// ValidityMask returns the per-frequency validity flags in plan order
func (r *SessionResult) ValidityMask() []bool {
	mask := make([]bool, len(r.Points))
	for i, p := range r.Points {
		mask[i] = p.Valid
	}
	return mask
}

// ScoreMessage summarises the score for the contestant
func (r *SessionResult) ScoreMessage(contestantName string) string {
	if r.ValidCount == 0 {
		return "No frequency had both a baseline and a hat reading. Please check the hardware and measure again."
	}
	if r.AverageAttenuation < 0 {
		msg := fmt.Sprintf("Warning: The hat shows negative attenuation (%.2f dB), which means it's amplifying signals instead of blocking them.", r.AverageAttenuation)
		if r.IsBestScore {
			return msg + " This is still your best score so far."
		}
		return msg + fmt.Sprintf(" Your previous best score of %.2f dB is better.", deref(r.PreviousBest))
	}
	if r.IsBestScore {
		return fmt.Sprintf("This is the best score for %s with an attenuation of %.2f dB.", contestantName, r.AverageAttenuation)
	}
	return fmt.Sprintf("Not the best score for %s. Previous best: %.2f dB, Current: %.2f dB.",
		contestantName, deref(r.PreviousBest), r.AverageAttenuation)
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
