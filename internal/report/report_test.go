package report

import (
	"testing"
	"time"

	"nretrack/internal/domain"
)

func sampleTasks() []domain.Task {
	return []domain.Task{
		{ID: "1", Name: "Camera bring-up", NRENumber: "NRE-100", Owner: "alice", DeviceType: "Phone", Status: domain.StatusInProgress, TaskType: "Bring-up", WorkHours: 8},
		{ID: "2", Name: "Audio tuning", NRENumber: "NRE-101", Owner: "bob", DeviceType: "Tablet", Status: domain.StatusPending, TaskType: "Debug", WorkHours: 4},
		{ID: "3", Name: "Display panel", NRENumber: "NRE-102", Owner: "alice", DeviceType: "Phone", Status: domain.StatusCompleted, TaskType: "Debug", WorkHours: 0},
		{ID: "4", Name: "Sensor hub", NRENumber: "nre-200", Owner: "carol", DeviceType: "Watch", Status: domain.StatusBlocked, TaskType: "Bring-up", WorkHours: 2.5},
	}
}

func ids(tasks []domain.Task) []string {
	res := make([]string, len(tasks))
	for i, t := range tasks {
		res[i] = t.ID
	}
	return res
}

func TestFilterEmptyQueryReturnsAllInOrder(t *testing.T) {
	got := Filter(sampleTasks(), Query{})
	if len(got) != 4 {
		t.Fatalf("expected 4 tasks, got %d", len(got))
	}
	for i, id := range []string{"1", "2", "3", "4"} {
		if got[i].ID != id {
			t.Fatalf("order not preserved: %v", ids(got))
		}
	}
}

func TestFilterSearchMatchesNameAndNRENumber(t *testing.T) {
	got := Filter(sampleTasks(), Query{Search: "CAMERA"})
	if len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("case-insensitive name search failed: %v", ids(got))
	}
	got = Filter(sampleTasks(), Query{Search: "NRE-2"})
	if len(got) != 1 || got[0].ID != "4" {
		t.Fatalf("case-insensitive nre search failed: %v", ids(got))
	}
}

func TestFilterPredicatesCombineWithAND(t *testing.T) {
	got := Filter(sampleTasks(), Query{
		Owner:    "alice",
		Devices:  []string{"Phone", "Tablet"},
		Statuses: []string{domain.StatusInProgress},
	})
	if len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("expected only task 1, got %v", ids(got))
	}
}

func TestFilterDeviceAllowList(t *testing.T) {
	got := Filter(sampleTasks(), Query{Devices: []string{"Tablet", "Watch"}})
	if len(got) != 2 || got[0].ID != "2" || got[1].ID != "4" {
		t.Fatalf("expected tasks 2 and 4, got %v", ids(got))
	}
}

func TestCounts(t *testing.T) {
	byStatus := CountByStatus(sampleTasks())
	if byStatus[domain.StatusInProgress] != 1 || byStatus[domain.StatusCompleted] != 1 {
		t.Fatalf("unexpected status counts: %v", byStatus)
	}
	byOwner := CountByOwner(sampleTasks())
	if byOwner["alice"] != 2 || byOwner["bob"] != 1 {
		t.Fatalf("unexpected owner counts: %v", byOwner)
	}
}

func TestWorkHoursByOwnerDevice(t *testing.T) {
	got := WorkHoursByOwnerDevice(sampleTasks())
	if got["alice"]["Phone"] != 8 {
		t.Fatalf("expected alice/Phone = 8, got %v", got)
	}
	// Task 3 has zero hours; alice must not gain a zero cell for it and
	// zero-only owners must be absent entirely.
	if len(got["alice"]) != 1 {
		t.Fatalf("zero-hour task should not add a cell: %v", got["alice"])
	}
	if got["carol"]["Watch"] != 2.5 {
		t.Fatalf("expected carol/Watch = 2.5, got %v", got)
	}
}

func TestWorkHoursByDimension(t *testing.T) {
	byType := WorkHoursByDimension(sampleTasks(), DimTaskType)
	if byType["Bring-up"] != 10.5 || byType["Debug"] != 4 {
		t.Fatalf("unexpected task-type sums: %v", byType)
	}
	byDevice := WorkHoursByDimension(sampleTasks(), DimDeviceType)
	if byDevice["Phone"] != 8 {
		t.Fatalf("unexpected device sums: %v", byDevice)
	}
	if got := WorkHoursByDimension(sampleTasks(), "owner"); len(got) != 0 {
		t.Fatalf("unknown dimension should yield empty map: %v", got)
	}
}

func TestOverdueDays(t *testing.T) {
	now := time.Date(2024, 1, 15, 9, 30, 0, 0, time.Local)
	cases := []struct {
		name    string
		endDate string
		status  string
		want    int
	}{
		{"five days past", "2024-01-10", domain.StatusInProgress, 5},
		{"due today", "2024-01-15", domain.StatusPending, 0},
		{"due tomorrow", "2024-01-16", domain.StatusPending, 0},
		{"yesterday late in the day", "2024-01-14", domain.StatusTesting, 1},
		{"completed never overdue", "2024-01-01", domain.StatusCompleted, 0},
		{"no end date", "", domain.StatusBlocked, 0},
		{"unparseable date", "01/10/2024", domain.StatusPending, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := OverdueDays(tc.endDate, tc.status, now); got != tc.want {
				t.Fatalf("OverdueDays(%q, %q) = %d, want %d", tc.endDate, tc.status, got, tc.want)
			}
		})
	}
}
