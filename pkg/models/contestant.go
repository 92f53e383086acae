package models

import "time"

// Contestant is a competition entrant
type Contestant struct {
	ID          int64     `json:"id" doc:"Contestant identifier"`
	Name        string    `json:"name" doc:"Unique display name"`
	PhoneNumber string    `json:"phone_number,omitempty" doc:"Contact phone number"`
	Email       string    `json:"email,omitempty" doc:"Contact email"`
	Notes       string    `json:"notes,omitempty" doc:"Free-form notes"`
	CreatedAt   time.Time `json:"created_at" doc:"Registration time"`
}

// LeaderboardEntry is one ranked best score
type LeaderboardEntry struct {
	Rank               int       `json:"rank" doc:"1-based position"`
	ContestantID       int64     `json:"contestant_id" doc:"Contestant identifier"`
	Name               string    `json:"name" doc:"Contestant name"`
	AverageAttenuation float64   `json:"average_attenuation" doc:"Best average attenuation in dB"`
	HatType            HatType   `json:"hat_type" doc:"Hat category"`
	TestedAt           time.Time `json:"test_date" doc:"When the score was recorded"`
	TestedAgo          string    `json:"tested_ago,omitempty" doc:"Human-readable age of the score"`
}

// LeaderboardFilter selects which best scores are ranked
type LeaderboardFilter struct {
	// HatType restricts the board to one category when set
	HatType HatType
	// AllTypes ranks each contestant's best per hat type side by side
	AllTypes bool
	Limit    int
}
