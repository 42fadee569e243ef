package http

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"orderflow/internal/core/application/usecases/commands"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"

	csvColumns = 4
)

// ErrFileMalformed means the upload could not be read in the declared format at all.
var ErrFileMalformed = errors.New("file is malformed")

// FileParser turns uploaded files into order drafts.
//
// Only structure is checked here: a row needs four columns and an integer
// quantity. Business rules such as non-empty fields or quantity >= 1 are left
// to the import handler, which reports them per item. Rows that fail the
// structural check are logged and skipped.
type FileParser struct {
	logger *slog.Logger
}

func NewFileParser(logger *slog.Logger) FileParser {
	return FileParser{logger: logger.With("component", "file-parser")}
}

// Parse dispatches on format, which is "csv" or "json".
func (p FileParser) Parse(format string, r io.Reader) ([]commands.OrderDraft, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		return p.ParseCSV(r)
	case FormatJSON:
		return p.ParseJSON(r)
	default:
		return nil, fmt.Errorf("unsupported file format %q", format)
	}
}

// ParseCSV reads a header row followed by order_number,customer,product,quantity rows.
func (p FileParser) ParseCSV(r io.Reader) ([]commands.OrderDraft, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrFileMalformed, err)
	}

	drafts := make([]commands.OrderDraft, 0)
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			p.logger.Warn("Skipping unreadable CSV row", "line", line, "error", err)
			continue
		}
		if isBlank(row) {
			continue
		}
		if len(row) < csvColumns {
			p.logger.Warn("Skipping CSV row with missing columns", "line", line, "columns", len(row))
			continue
		}

		quantity, err := strconv.Atoi(strings.TrimSpace(row[3]))
		if err != nil {
			p.logger.Warn("Skipping CSV row with non-integer quantity", "line", line, "quantity", row[3])
			continue
		}

		drafts = append(drafts, commands.OrderDraft{
			OrderNumber: strings.TrimSpace(row[0]),
			Customer:    strings.TrimSpace(row[1]),
			Product:     strings.TrimSpace(row[2]),
			Quantity:    quantity,
		})
	}

	return drafts, nil
}

// ParseJSON accepts {"orders": [...]} or a single order object.
func (p FileParser) ParseJSON(r io.Reader) ([]commands.OrderDraft, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Orders []json.RawMessage `json:"orders"`
	}
	if err = json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON format", ErrFileMalformed)
	}

	items := envelope.Orders
	if items == nil {
		items = []json.RawMessage{bytes.TrimSpace(data)}
	}

	drafts := make([]commands.OrderDraft, 0, len(items))
	for i, item := range items {
		var draft commands.OrderDraft
		decoder := json.NewDecoder(bytes.NewReader(item))
		if err = decoder.Decode(&draft); err != nil {
			p.logger.Warn("Skipping unreadable JSON order", "index", i, "error", err)
			continue
		}
		drafts = append(drafts, draft)
	}

	return drafts, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
