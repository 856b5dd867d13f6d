package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Opener opens a named scenario file.
type Opener interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Issue is a required field found empty in a source record.
type Issue struct {
	Index int
	Field string
}

// Decode parses a JSON array of the schema's record type and assigns every
// record a fresh identifier.
func Decode(r io.Reader, schema Schema) ([]Entry, error) {
	switch schema {
	case PowerFlowSchema:
		return decode[PowerFlow](r)
	case PowerGenerationSchema:
		return decode[PowerGeneration](r)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSchema, string(schema))
}

func decode[T any, PT interface {
	*T
	Entry
}](r io.Reader) ([]Entry, error) {
	var records []T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("failed to decode records: trailing data after array")
	}

	entries := make([]Entry, len(records))
	for i := range records {
		e := PT(&records[i])
		e.Base().AssignID()
		entries[i] = e
	}
	return entries, nil
}

// Check returns one issue per required field left empty, in record order.
func Check(entries []Entry) []Issue {
	var issues []Issue
	for i, e := range entries {
		for _, name := range e.MissingFields() {
			issues = append(issues, Issue{Index: i, Field: name})
		}
	}
	return issues
}

// ReadFile opens, decodes and checks one scenario file. Failures are logged
// and yield no records so the caller can move on to the next file.
func ReadFile(ctx context.Context, src Opener, name string, schema Schema, logger *zap.Logger) []Entry {
	rc, err := src.Open(ctx, name)
	if err != nil {
		logger.Error("failed to open scenario file", zap.String("file", name), zap.Error(err))
		return nil
	}
	defer rc.Close()

	entries, err := Decode(rc, schema)
	if err != nil {
		logger.Error("failed to read scenario file", zap.String("file", name), zap.Error(err))
		return nil
	}

	for _, issue := range Check(entries) {
		logger.Warn("missing data",
			zap.String("file", name),
			zap.Int("index", issue.Index),
			zap.String("field", issue.Field))
	}
	return entries
}
