package domain

// ApplicationStatus is the lifecycle state of an application, independent of
// its pipeline stage.
type ApplicationStatus string

// Application statuses.
const (
	StatusActive    ApplicationStatus = "active"
	StatusRejected  ApplicationStatus = "rejected"
	StatusHired     ApplicationStatus = "hired"
	StatusWithdrawn ApplicationStatus = "withdrawn"
)

// Valid reports whether s is a known status.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusActive, StatusRejected, StatusHired, StatusWithdrawn:
		return true
	}
	return false
}

// InFunnel reports whether an application with status s still moves
// through the pipeline.
func (s ApplicationStatus) InFunnel() bool {
	return s == StatusActive || s == StatusHired
}

// StatusForStage returns the status an application takes on entering st.
func StatusForStage(st Stage) ApplicationStatus {
	switch st.Type {
	case StageHired:
		return StatusHired
	case StageRejected:
		return StatusRejected
	}
	return StatusActive
}

// Application is a candidate's application to a job.
type Application struct {
	ID              string            `json:"id"`
	JobID           string            `json:"jobId"`
	CandidateName   string            `json:"candidateName"`
	CandidateEmail  string            `json:"candidateEmail,omitempty"`
	CurrentStageKey string            `json:"currentStageKey"`
	Status          ApplicationStatus `json:"status"`
	CreatedAt       string            `json:"createdAt"`
	UpdatedAt       string            `json:"updatedAt"`
}

// StageChange is one entry of an application's stage history.
type StageChange struct {
	ID            string `json:"id"`
	ApplicationID string `json:"applicationId"`
	FromStageKey  string `json:"fromStageKey"`
	ToStageKey    string `json:"toStageKey"`
	Reason        string `json:"reason,omitempty"`
	Notes         string `json:"notes,omitempty"`
	Actor         string `json:"actor,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

// StageChangeRequest moves an application to StageKey. When ExpectedStageKey
// is set the move only applies if the application is still in that stage.
type StageChangeRequest struct {
	StageKey         string `json:"stageKey"`
	ExpectedStageKey string `json:"expectedStageKey,omitempty"`
	Reason           string `json:"reason,omitempty"`
	Notes            string `json:"notes,omitempty"`
}

// BulkStatusRequest sets the status of several applications at once.
type BulkStatusRequest struct {
	ApplicationIDs []string          `json:"applicationIds"`
	Status         ApplicationStatus `json:"status"`
}

// BulkStatusResult reports the applications touched by a bulk update.
type BulkStatusResult struct {
	Updated int `json:"updated"`
}
