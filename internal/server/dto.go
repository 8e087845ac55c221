package server

// Request payloads

// UpdateTaskRequest carries a full or partial task update. Pointer fields
// distinguish "not provided" from "set to zero value" so a partial PUT
// merges over the stored record. Clients commonly PUT the full record
// back, so id and createdAt are accepted here but never applied; the
// stored values are immutable.
type UpdateTaskRequest struct {
	ID             *string  `json:"id,omitempty"`
	CreatedAt      *int64   `json:"createdAt,omitempty"`
	Name           *string  `json:"name,omitempty"`
	Owner          *string  `json:"owner,omitempty"`
	DeviceType     *string  `json:"deviceType,omitempty"`
	Platform       *string  `json:"platform,omitempty"`
	AndroidVersion *string  `json:"androidVersion,omitempty"`
	NRENumber      *string  `json:"nreNumber,omitempty"`
	Status         *string  `json:"status,omitempty"`
	TaskType       *string  `json:"taskType,omitempty"`
	StartDate      *string  `json:"startDate,omitempty"`
	EndDate        *string  `json:"endDate,omitempty"`
	WorkHours      *float64 `json:"workHours,omitempty"`
	Content        *string  `json:"content,omitempty"`
}

type SetConfigRequest struct {
	Port int `json:"port"`
}

// Response payloads

type MessageResponse struct {
	Message string `json:"message" example:"Deleted"`
}

type ConfigResponse struct {
	Port int `json:"port"`
}

type SetConfigResponse struct {
	Message string `json:"message"`
	Port    int    `json:"port"`
}

type NetworkInfoResponse struct {
	IP   string `json:"ip" example:"192.168.1.23"`
	Port int    `json:"port" example:"3001"`
}
