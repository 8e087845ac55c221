package csvcodec

import (
	"context"
	"errors"
	"strings"
	"testing"

	"nretrack/internal/domain"
)

func TestEncodeShape(t *testing.T) {
	tasks := []domain.Task{
		{
			Name:      `Bring "X" up, fast`,
			TaskType:  "Bring-up",
			Owner:     "alice",
			Status:    domain.StatusPending,
			StartDate: "2024-01-02",
			EndDate:   "2024-01-10",
			WorkHours: 7.5,
			Content:   "line one\nline two",
		},
	}
	out := Encode(tasks)
	if !strings.HasPrefix(out, "\uFEFF") {
		t.Fatal("expected BOM prefix")
	}
	lines := strings.SplitN(strings.TrimPrefix(out, "\uFEFF"), "\n", 2)
	if lines[0] != strings.Join(Headers, ",") {
		t.Fatalf("unexpected header row: %q", lines[0])
	}
	if !strings.Contains(out, `"Bring ""X"" up, fast"`) {
		t.Fatal("quotes should be doubled and the field kept whole")
	}
	if !strings.Contains(out, `,7.5,`) {
		t.Fatal("workHours should be unquoted")
	}
	if !strings.Contains(out, "\"line one\nline two\"") {
		t.Fatal("newlines inside content should survive quoted")
	}
}

func TestRoundTrip(t *testing.T) {
	tasks := []domain.Task{
		{
			Name:           "Normal task",
			TaskType:       "Debug",
			Owner:          "bob",
			DeviceType:     "Phone",
			Platform:       "SM8650",
			AndroidVersion: "14",
			NRENumber:      "NRE-1",
			Status:         domain.StatusInProgress,
			StartDate:      "2024-03-01",
			EndDate:        "2024-03-08",
			WorkHours:      12,
			Content:        "plain",
		},
		{
			Name:      `Tricky, "quoted"` + "\nmultiline",
			Status:    domain.StatusCompleted,
			WorkHours: 0.25,
			Content:   `a,b"",c` + "\r\nnext",
		},
	}
	decoded := Decode(Encode(tasks))
	if len(decoded) != len(tasks) {
		t.Fatalf("expected %d rows, got %d", len(tasks), len(decoded))
	}
	for i, want := range tasks {
		got := decoded[i]
		if got.Name != want.Name || got.Owner != want.Owner || got.Status != want.Status {
			t.Fatalf("row %d mismatch: got %+v", i, got)
		}
		if got.WorkHours != want.WorkHours {
			t.Fatalf("row %d hours: got %v want %v", i, got.WorkHours, want.WorkHours)
		}
		if got.Content != want.Content {
			t.Fatalf("row %d content: got %q want %q", i, got.Content, want.Content)
		}
	}
}

func TestDecodeSkipsShortRows(t *testing.T) {
	text := strings.Join([]string{
		"h1,h2,h3",
		`"only","three","cols"`,
		`"A","Debug","bob","Phone","SM8650","14","NRE-1","Pending","2024-01-01","2024-01-05",3`,
		"",
	}, "\n")
	decoded := Decode(text)
	if len(decoded) != 1 {
		t.Fatalf("expected 1 row, got %d", len(decoded))
	}
	if decoded[0].Name != "A" || decoded[0].WorkHours != 3 {
		t.Fatalf("unexpected row: %+v", decoded[0])
	}
	if decoded[0].Content != "" {
		t.Fatalf("11-column row should have empty content, got %q", decoded[0].Content)
	}
}

func TestDecodeTrailingRowWithoutNewline(t *testing.T) {
	text := "h\n" + `"A","Debug","bob","Phone","SM8650","14","NRE-1","Pending","","",4,"notes"`
	decoded := Decode(text)
	if len(decoded) != 1 {
		t.Fatalf("expected 1 row, got %d", len(decoded))
	}
	if decoded[0].Content != "notes" {
		t.Fatalf("expected content from column 12, got %q", decoded[0].Content)
	}
}

func TestDecodeHoursCoercion(t *testing.T) {
	text := "h\n" + `"A","","","","","","","Pending","","",abc` + "\n" +
		`"B","","","","","","","Pending","","",-3`
	decoded := Decode(text)
	if len(decoded) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(decoded))
	}
	if decoded[0].WorkHours != 0 || decoded[1].WorkHours != 0 {
		t.Fatalf("unparseable and negative hours should coerce to 0: %v %v",
			decoded[0].WorkHours, decoded[1].WorkHours)
	}
}

func TestDecodeCRLFAndLoneCR(t *testing.T) {
	row := `"A","","","","","","","Pending","","",1`
	for _, sep := range []string{"\r\n", "\r", "\n"} {
		text := "header" + sep + row + sep + row
		decoded := Decode(text)
		if len(decoded) != 2 {
			t.Fatalf("separator %q: expected 2 rows, got %d", sep, len(decoded))
		}
	}
}

func TestImportStopsAtFirstFailure(t *testing.T) {
	row := func(name string) string {
		return `"` + name + `","","","","","","","Pending","","",1`
	}
	text := strings.Join([]string{"h", row("one"), row("two"), row("three")}, "\n")

	var created []string
	count, err := Import(context.Background(), strings.NewReader(text),
		func(ctx context.Context, data domain.TaskFormData) error {
			if data.Name == "three" {
				return errors.New("boom")
			}
			created = append(created, data.Name)
			return nil
		})
	if err == nil {
		t.Fatal("expected an error")
	}
	if count != 2 {
		t.Fatalf("expected 2 committed rows, got %d", count)
	}
	if len(created) != 2 || created[0] != "one" || created[1] != "two" {
		t.Fatalf("earlier rows should stay committed in order: %v", created)
	}
	if !strings.Contains(err.Error(), "import row 3") {
		t.Fatalf("error should name the failing row: %v", err)
	}
}

func TestImportEmptyInput(t *testing.T) {
	count, err := Import(context.Background(), strings.NewReader(""), func(context.Context, domain.TaskFormData) error {
		t.Fatal("create should not be called")
		return nil
	})
	if err != nil || count != 0 {
		t.Fatalf("expected 0, nil; got %d, %v", count, err)
	}
}
