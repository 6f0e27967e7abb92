package events

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// GradingStartedData contains data for GradingStarted events
type GradingStartedData struct {
	RunID    string `json:"run_id"`
	Source   string `json:"source"`
	Strategy string `json:"strategy"`
	Items    int    `json:"items"`
	Shots    int    `json:"shots"`
}

// EventType returns the event type for GradingStartedData
func (d *GradingStartedData) EventType() EventType {
	return GradingStarted
}

// ItemGradedData contains data for ItemGraded events
type ItemGradedData struct {
	RunID         string  `json:"run_id"`
	Index         int     `json:"index"`
	ItemID        string  `json:"item_id"`
	MSE           float64 `json:"mse"`
	TwoQubitGates int     `json:"two_qubit_gates"`
	Completed     int     `json:"completed"`
	Total         int     `json:"total"`
}

// EventType returns the event type for ItemGradedData
func (d *ItemGradedData) EventType() EventType {
	return ItemGraded
}

// GradingCompletedData contains data for GradingCompleted events
type GradingCompletedData struct {
	RunID                string  `json:"run_id"`
	Fidelity             float64 `json:"fidelity"`
	MSEStdDev            float64 `json:"mse_std_dev"`
	AverageTwoQubitGates float64 `json:"average_two_qubit_gates"`
	Score                float64 `json:"score"`
	DurationMs           int64   `json:"duration_ms"`
}

// EventType returns the event type for GradingCompletedData
func (d *GradingCompletedData) EventType() EventType {
	return GradingCompleted
}

// GradingFailedData contains data for GradingFailed events
type GradingFailedData struct {
	RunID     string `json:"run_id"`
	Error     string `json:"error"`
	ItemIndex *int   `json:"item_index,omitempty"`
	ItemID    string `json:"item_id,omitempty"`
	Stage     string `json:"stage,omitempty"`
}

// EventType returns the event type for GradingFailedData
func (d *GradingFailedData) EventType() EventType {
	return GradingFailed
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
