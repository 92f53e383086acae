package models

import "time"

// EventType names a notification emitted by the measurement engine
type EventType string

const (
	EventSessionStarted      EventType = "session_started"
	EventMeasurementRecorded EventType = "measurement_recorded"
	EventSessionReset        EventType = "session_reset"
	EventSessionFinalized    EventType = "session_finalized"
)

// MeasurementEvent describes one recorded reading
type MeasurementEvent struct {
	Frequency Frequency       `json:"frequency" doc:"Frequency in Hz"`
	Kind      MeasurementKind `json:"measurement_type" enum:"baseline,hat" doc:"Measurement kind"`
	Power     float64         `json:"power" doc:"Power in dBm"`
	// Attenuation is set for hat readings whose baseline is known
	Attenuation   *float64 `json:"attenuation,omitempty" doc:"Baseline minus hat in dB"`
	BaselinePower *float64 `json:"baseline_power,omitempty" doc:"Baseline power in dBm"`
}

// Event is the envelope delivered to notification subscribers
type Event struct {
	ID          string            `json:"id" doc:"Event identifier"`
	Type        EventType         `json:"event_type" doc:"Event type"`
	SessionID   string            `json:"session_id,omitempty" doc:"Session the event belongs to"`
	Phase       MeasurementKind   `json:"phase,omitempty" doc:"Phase that started"`
	Measurement *MeasurementEvent `json:"measurement,omitempty" doc:"Recorded measurement"`
	Result      *SessionResult    `json:"result,omitempty" doc:"Finalized result"`
	Timestamp   time.Time         `json:"timestamp" doc:"Emission time"`
}
