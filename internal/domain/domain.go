package domain

// Task statuses form a fixed set; everything else on a task is free text
// constrained only by the configurable dropdown lists.
const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusTesting    = "Testing"
	StatusCompleted  = "Completed"
	StatusBlocked    = "Blocked"
)

// Statuses lists the valid task statuses in display order.
var Statuses = []string{StatusPending, StatusInProgress, StatusTesting, StatusCompleted, StatusBlocked}

// ValidStatus reports whether s is one of the fixed task statuses.
func ValidStatus(s string) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Task is a tracked unit of device bring-up work.
// CreatedAt is unix milliseconds and is only used for default sort order.
type Task struct {
	ID             string  `json:"id" required:"false"`
	Name           string  `json:"name" required:"false"`
	Owner          string  `json:"owner" required:"false"`
	DeviceType     string  `json:"deviceType" required:"false"`
	Platform       string  `json:"platform" required:"false"`
	AndroidVersion string  `json:"androidVersion" required:"false"`
	NRENumber      string  `json:"nreNumber" required:"false"`
	Status         string  `json:"status" required:"false"`
	TaskType       string  `json:"taskType" required:"false"`
	StartDate      string  `json:"startDate" required:"false"`
	EndDate        string  `json:"endDate" required:"false"`
	WorkHours      float64 `json:"workHours" required:"false"`
	Content        string  `json:"content,omitempty"`
	CreatedAt      int64   `json:"createdAt" required:"false"`
}

// TaskFormData carries every user-editable task field; id and createdAt
// are synthesized at creation time.
type TaskFormData struct {
	Name           string  `json:"name"`
	Owner          string  `json:"owner"`
	DeviceType     string  `json:"deviceType"`
	Platform       string  `json:"platform"`
	AndroidVersion string  `json:"androidVersion"`
	NRENumber      string  `json:"nreNumber"`
	Status         string  `json:"status"`
	TaskType       string  `json:"taskType"`
	StartDate      string  `json:"startDate"`
	EndDate        string  `json:"endDate"`
	WorkHours      float64 `json:"workHours"`
	Content        string  `json:"content,omitempty"`
}

// Merge returns t with the form fields applied on top.
func (t Task) Merge(data TaskFormData) Task {
	t.Name = data.Name
	t.Owner = data.Owner
	t.DeviceType = data.DeviceType
	t.Platform = data.Platform
	t.AndroidVersion = data.AndroidVersion
	t.NRENumber = data.NRENumber
	t.Status = data.Status
	t.TaskType = data.TaskType
	t.StartDate = data.StartDate
	t.EndDate = data.EndDate
	t.WorkHours = data.WorkHours
	t.Content = data.Content
	return t
}

// DropdownOptions are the configurable enumerations backing the selection
// controls. Changing a list never touches stored tasks; a task may
// reference a value that has since been removed.
type DropdownOptions struct {
	Owners          []string `json:"owners"`
	DeviceTypes     []string `json:"deviceTypes"`
	Platforms       []string `json:"platforms"`
	AndroidVersions []string `json:"androidVersions"`
	TaskTypes       []string `json:"taskTypes"`
}
