// Package csvcodec encodes and decodes the spreadsheet interchange format
// for task records: UTF-8 with BOM, comma-delimited, double-quoted text
// fields, 12 fixed columns (content optional on decode).
//
// The decoder is a hand-rolled single-pass parser because the format
// allows commas, quotes, and newlines inside quoted fields, which a naive
// split-on-newline cannot handle, and because the encoder's exact shape
// (one unquoted numeric column, BOM prefix, bare-\n row joins) is not
// what encoding/csv produces.
package csvcodec

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"nretrack/internal/domain"
)

const bom = "\uFEFF"

// Headers is the fixed export column order. Decode discards the header
// row, so localized headers from other exports import fine.
var Headers = []string{
	"Task Name", "Task Type", "Owner", "Device Type", "Platform",
	"Android Version", "NRE Number", "Status", "Start Date", "End Date",
	"Work Hours", "Content",
}

// minColumns is the shortest row decode accepts; column 12 (content) is
// the only optional one.
const minColumns = 11

// Encode renders tasks as CSV. Every textual field is double-quoted with
// internal quotes doubled; workHours is emitted unquoted so spreadsheet
// tools treat it as a number. The BOM prefix makes Excel default to
// UTF-8.
func Encode(tasks []domain.Task) string {
	var b strings.Builder
	b.WriteString(bom)
	b.WriteString(strings.Join(Headers, ","))
	for _, t := range tasks {
		b.WriteByte('\n')
		cols := []string{
			quote(t.Name), quote(t.TaskType), quote(t.Owner), quote(t.DeviceType),
			quote(t.Platform), quote(t.AndroidVersion), quote(t.NRENumber), quote(t.Status),
			quote(t.StartDate), quote(t.EndDate),
			formatHours(t.WorkHours),
			quote(t.Content),
		}
		b.WriteString(strings.Join(cols, ","))
	}
	return b.String()
}

func quote(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

func formatHours(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Decode parses CSV text into task form data. The first row is always
// treated as a header and discarded; rows with fewer than 11 fields are
// skipped rather than reported.
func Decode(text string) []domain.TaskFormData {
	rows := parseRows(text)
	if len(rows) <= 1 {
		return nil
	}
	var res []domain.TaskFormData
	for _, row := range rows[1:] {
		if len(row) < minColumns {
			continue
		}
		res = append(res, rowToForm(row))
	}
	return res
}

// parseRows is the single-pass state machine over the raw text. Inside a
// quoted field commas and newlines are literal and "" is one quote; an
// unquoted \n, \r\n, or \r ends the row; a trailing row with no
// terminator is still captured.
func parseRows(text string) [][]string {
	text = strings.TrimPrefix(text, bom)
	var rows [][]string
	var row []string
	var field strings.Builder
	inQuotes := false
	fieldStarted := false

	endField := func() {
		row = append(row, field.String())
		field.Reset()
		fieldStarted = false
	}
	endRow := func() {
		endField()
		rows = append(rows, row)
		row = nil
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		if inQuotes {
			if c == '"' {
				if i+1 < len(text) && text[i+1] == '"' {
					field.WriteByte('"')
					i++
					continue
				}
				inQuotes = false
				continue
			}
			field.WriteByte(c)
			continue
		}
		switch c {
		case '"':
			inQuotes = true
			fieldStarted = true
		case ',':
			endField()
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			endRow()
		case '\n':
			endRow()
		default:
			field.WriteByte(c)
			fieldStarted = true
		}
	}
	if fieldStarted || field.Len() > 0 || len(row) > 0 {
		endRow()
	}
	return rows
}

func rowToForm(row []string) domain.TaskFormData {
	data := domain.TaskFormData{
		Name:           row[0],
		TaskType:       row[1],
		Owner:          row[2],
		DeviceType:     row[3],
		Platform:       row[4],
		AndroidVersion: row[5],
		NRENumber:      row[6],
		Status:         row[7],
		StartDate:      row[8],
		EndDate:        row[9],
		WorkHours:      parseHours(row[10]),
	}
	if len(row) > 11 {
		data.Content = row[11]
	}
	return data
}

// parseHours coerces the textual workHours field; unparseable or negative
// input becomes 0.
func parseHours(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

// CreateFunc persists one imported record.
type CreateFunc func(ctx context.Context, data domain.TaskFormData) error

// Import decodes CSV from r and creates one record per valid row,
// strictly sequentially. The first create failure aborts the remaining
// rows but keeps earlier rows committed; the returned count always
// reflects the rows actually created.
func Import(ctx context.Context, r io.Reader, create CreateFunc) (int, error) {
	text, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read csv: %w", err)
	}
	count := 0
	for _, data := range Decode(string(text)) {
		if err := create(ctx, data); err != nil {
			return count, fmt.Errorf("import row %d: %w", count+1, err)
		}
		count++
	}
	return count, nil
}
