package simulate

import "time"

// Config holds configuration for the bout simulation.
type Config struct {
	BaseURL    string        // Base URL of the service
	BoutID     string        // Bout identifier to simulate
	Rounds     int           // Number of rounds to simulate
	Actions    int           // Physical actions per round per fighter
	Cameras    int           // CV cameras observing each action
	DupRate    float64       // Fraction of submissions retransmitted
	Workers    int           // Number of concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	Lock       bool          // Lock each round after streaming
	OutputFile string        // Output file for generated submissions
	Verbose    bool          // Enable verbose logging
}

// Submission mirrors the POST /v1/events wire schema.
type Submission struct {
	BoutID      string  `json:"bout_id"`
	RoundID     string  `json:"round_id"`
	FighterID   string  `json:"fighter_id"`
	EventType   string  `json:"event_type"`
	Severity    float64 `json:"severity"`
	Confidence  float64 `json:"confidence"`
	TimestampMS int64   `json:"timestamp_ms"`
	Source      string  `json:"source"`
	DeviceID    string  `json:"device_or_camera_id"`

	AngleDegrees float64 `json:"angle_degrees,omitempty"`
	Position     string  `json:"position,omitempty"`
	Target       string  `json:"target,omitempty"`
}

// AckResponse mirrors the submission acknowledgement.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	EventID   string `json:"event_id"`
	Sequence  int    `json:"sequence_index"`
}

// Stats holds simulation statistics.
type Stats struct {
	RoundsRegistered int
	Generated        int
	Submitted        int
	Accepted         int
	Duplicates       int
	Failed           int
	RoundsLocked     int
	ChainsValid      int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
