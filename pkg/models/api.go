package models

import (
	"time"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Body struct {
		Status  string    `json:"status" example:"healthy" doc:"Service health status"`
		Version string    `json:"version" example:"1.0.0" doc:"API version"`
		Time    time.Time `json:"time" doc:"Current server time"`
	}
}

// DeviceStatusResponse reports whether the receiver is ready
type DeviceStatusResponse struct {
	Body DeviceStatusBody
}

type DeviceStatusBody struct {
	Available bool   `json:"available" doc:"Device answered the probe"`
	Serial    string `json:"serial,omitempty" doc:"Device serial number"`
	Message   string `json:"message" doc:"Human-readable status"`
}

// GetFrequenciesResponse lists the active frequency plan
type GetFrequenciesResponse struct {
	Body struct {
		Frequencies []FrequencyPoint `json:"frequencies" doc:"Planned frequencies in measurement order"`
		Count       int              `json:"count" doc:"Number of planned frequencies"`
	}
}

// StartPhaseRequest starts a baseline or hat phase
type StartPhaseRequest struct {
	Sweep bool `query:"sweep" doc:"Measure every planned frequency in the background"`
}

// StartPhaseResponse describes the phase that started
type StartPhaseResponse struct {
	Body StartPhaseBody
}

type StartPhaseBody struct {
	SessionID   string          `json:"session_id" doc:"Measurement session identifier"`
	Phase       MeasurementKind `json:"phase" enum:"baseline,hat" doc:"Phase that started"`
	Frequencies []Frequency     `json:"frequencies" doc:"Frequencies to measure, in Hz"`
	Sweeping    bool            `json:"sweeping" doc:"A background sweep is running"`
}

// MeasureRequest samples and records one frequency
type MeasureRequest struct {
	Body struct {
		Frequency       int64  `json:"frequency" minimum:"1000000" maximum:"6000000000" required:"true" doc:"Frequency in Hz"`
		MeasurementType string `json:"measurement_type" enum:"baseline,hat" required:"true" doc:"Measurement kind"`
	}
}

// MeasureResponse carries the recorded reading
type MeasureResponse struct {
	Body *MeasurementEvent
}

// CompletePhaseRequest closes a phase before every frequency was measured
type CompletePhaseRequest struct {
	Body struct {
		MeasurementType string `json:"measurement_type" enum:"baseline,hat" required:"true" doc:"Phase to complete"`
	}
}

// FinalizeRequest finishes the session for a contestant
type FinalizeRequest struct {
	Body struct {
		ContestantID int64  `json:"contestant_id" minimum:"1" required:"true" doc:"Contestant identifier"`
		HatType      string `json:"hat_type,omitempty" enum:"classic,hybrid" doc:"Hat category, classic when omitted"`
	}
}

// FinalizeResponse carries the computed result
type FinalizeResponse struct {
	Body FinalizeBody
}

type FinalizeBody struct {
	Result    *SessionResult `json:"result" doc:"Computed session result"`
	Message   string         `json:"message" doc:"Score summary for the contestant"`
	ReportKey string         `json:"report_key,omitempty" doc:"Archive key of the JSON report"`
}

// StatusResponse is a generic acknowledgement
type StatusResponse struct {
	Body struct {
		Status  string `json:"status" example:"success" doc:"Outcome"`
		Message string `json:"message,omitempty" doc:"Details"`
	}
}

// CreateContestantRequest registers a contestant
type CreateContestantRequest struct {
	Body struct {
		Name        string `json:"name" minLength:"1" maxLength:"100" required:"true" doc:"Unique display name"`
		PhoneNumber string `json:"phone_number,omitempty" maxLength:"40" doc:"Contact phone number"`
		Email       string `json:"email,omitempty" maxLength:"200" doc:"Contact email"`
		Notes       string `json:"notes,omitempty" maxLength:"1000" doc:"Free-form notes"`
	}
}

// ContestantResponse returns one contestant
type ContestantResponse struct {
	Body *Contestant
}

// ListContestantsResponse returns every contestant
type ListContestantsResponse struct {
	Body struct {
		Contestants []*Contestant `json:"contestants" doc:"Registered contestants"`
	}
}

// LeaderboardRequest filters the leaderboard
type LeaderboardRequest struct {
	HatType      string `query:"hat_type" doc:"Only rank this hat category"`
	ShowAllTypes bool   `query:"show_all_types" doc:"Rank each contestant's best per hat type"`
	Limit        int    `query:"limit" minimum:"0" maximum:"1000" doc:"Maximum rows, 0 for the default"`
}

// LeaderboardResponse returns ranked best scores
type LeaderboardResponse struct {
	Body struct {
		Entries []LeaderboardEntry `json:"leaderboard" doc:"Ranked best scores"`
	}
}

// BillboardSpectrum is the most recent result's valid points
type BillboardSpectrum struct {
	ResultID           string      `json:"result_id" doc:"Result identifier"`
	ContestantName     string      `json:"name" doc:"Contestant name"`
	HatType            HatType     `json:"hat_type" doc:"Hat category"`
	AverageAttenuation float64     `json:"attenuation" doc:"Average attenuation in dB"`
	TestedAt           time.Time   `json:"date" doc:"When the result was finalized"`
	TestedAgo          string      `json:"tested_ago" doc:"Human-readable age of the result"`
	Frequencies        []Frequency `json:"frequencies" doc:"Frequencies in Hz"`
	BaselineLevels     []float64   `json:"baseline_levels" doc:"Baseline power in dBm"`
	HatLevels          []float64   `json:"hat_levels" doc:"Power with hat in dBm"`
	Attenuations       []float64   `json:"attenuations" doc:"Attenuation in dB"`
}

// Billboard is the public display payload
type Billboard struct {
	Latest    *BillboardSpectrum `json:"recent_test,omitempty" doc:"Most recent result"`
	Classic   []LeaderboardEntry `json:"leaderboard_classic" doc:"Top classic hats"`
	Hybrid    []LeaderboardEntry `json:"leaderboard_hybrid" doc:"Top hybrid hats"`
	UpdatedAt time.Time          `json:"updated_at" doc:"When the billboard was built"`
}

// BillboardResponse returns the billboard
type BillboardResponse struct {
	Body *Billboard
}

// GetResultRequest addresses one result
type GetResultRequest struct {
	ID string `path:"id" format:"uuid" doc:"Result ID"`
}

// GetResultResponse returns one result
type GetResultResponse struct {
	Body *SessionResult
}

// ReportResponse returns a presigned report link
type ReportResponse struct {
	Body struct {
		Key       string `json:"key" doc:"Archive object key"`
		URL       string `json:"url" doc:"Pre-signed download URL"`
		ExpiresIn int    `json:"expires_in" doc:"URL expiration time in seconds"`
	}
}
