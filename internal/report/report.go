// Package report derives list and dashboard views from an in-memory task
// set: compound predicate filtering, grouped counts and work-hour sums,
// and overdue-day calculation.
package report

import (
	"strings"
	"time"

	"nretrack/internal/domain"
)

// Query is the compound task filter. Empty Search and Owner are
// unconstrained; Devices and Statuses are inclusion allow-lists when
// non-empty and unconstrained when empty. All predicates AND together.
type Query struct {
	Search   string
	Owner    string
	Devices  []string
	Statuses []string
}

// Filter returns the subsequence of tasks matching q, preserving order.
func Filter(tasks []domain.Task, q Query) []domain.Task {
	search := strings.ToLower(q.Search)
	res := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Name), search) &&
			!strings.Contains(strings.ToLower(t.NRENumber), search) {
			continue
		}
		if q.Owner != "" && t.Owner != q.Owner {
			continue
		}
		if len(q.Devices) > 0 && !contains(q.Devices, t.DeviceType) {
			continue
		}
		if len(q.Statuses) > 0 && !contains(q.Statuses, t.Status) {
			continue
		}
		res = append(res, t)
	}
	return res
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// CountByStatus returns task counts per status.
func CountByStatus(tasks []domain.Task) map[string]int {
	res := map[string]int{}
	for _, t := range tasks {
		res[t.Status]++
	}
	return res
}

// CountByOwner returns task counts per owner.
func CountByOwner(tasks []domain.Task) map[string]int {
	res := map[string]int{}
	for _, t := range tasks {
		res[t.Owner]++
	}
	return res
}

// WorkHoursByOwnerDevice sums work hours per owner and device. Owners
// with a zero total are dropped, as are zero device cells, so the result
// maps directly onto a stacked chart.
func WorkHoursByOwnerDevice(tasks []domain.Task) map[string]map[string]float64 {
	res := map[string]map[string]float64{}
	for _, t := range tasks {
		if t.WorkHours <= 0 {
			continue
		}
		byDevice, ok := res[t.Owner]
		if !ok {
			byDevice = map[string]float64{}
			res[t.Owner] = byDevice
		}
		byDevice[t.DeviceType] += t.WorkHours
	}
	return res
}

// Dimensions accepted by WorkHoursByDimension.
const (
	DimTaskType   = "taskType"
	DimDeviceType = "deviceType"
)

// WorkHoursByDimension sums work hours grouped by task type or device
// type. Unknown dimensions yield an empty map.
func WorkHoursByDimension(tasks []domain.Task, dimension string) map[string]float64 {
	res := map[string]float64{}
	for _, t := range tasks {
		var key string
		switch dimension {
		case DimTaskType:
			key = t.TaskType
		case DimDeviceType:
			key = t.DeviceType
		default:
			return res
		}
		res[key] += t.WorkHours
	}
	return res
}

// OverdueDays returns how many whole calendar days a task is past its end
// date as of now. Completed tasks and tasks without an end date are never
// overdue. The comparison is date-only in local time: a task due
// yesterday is 1 day overdue regardless of clock time.
func OverdueDays(endDate, status string, now time.Time) int {
	if status == domain.StatusCompleted || endDate == "" {
		return 0
	}
	parsed, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return 0
	}
	// Re-anchor both dates at UTC midnight so the difference is an exact
	// multiple of 24h even across DST transitions.
	end := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if !today.After(end) {
		return 0
	}
	return int(today.Sub(end).Hours() / 24)
}
