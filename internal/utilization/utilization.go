// Package utilization assembles hourly branch utilization from a yearly
// base file and a sequence of daily chunks.
package utilization

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"math"
	"strconv"
	"time"
)

const (
	// YearMedianKey holds the yearly value in every branch series.
	YearMedianKey = "yearMedian"
	MaxChunks     = 14
)

// Branch is one transmission line and its utilization series keyed by
// unix timestamp (seconds, as a decimal string) plus YearMedianKey.
type Branch struct {
	BranchID          int                `json:"branch_id"`
	Capacity          float64            `json:"capacity"`
	Coords            [][2]float64       `json:"coords"`
	MedianUtilization map[string]float64 `json:"median_utilization"`
}

// Chunk carries, per branch position, the values of a span of timestamps.
type Chunk []map[string]float64

// LoadBase reads the yearly branch file, whose median_utilization is a
// single number, and turns each value into a series.
func LoadBase(r io.Reader) ([]Branch, error) {
	var raw []struct {
		BranchID          int          `json:"branch_id"`
		Capacity          float64      `json:"capacity"`
		Coords            [][2]float64 `json:"coords"`
		MedianUtilization float64      `json:"median_utilization"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode base file: %w", err)
	}

	branches := make([]Branch, len(raw))
	for i, b := range raw {
		branches[i] = Branch{
			BranchID:          b.BranchID,
			Capacity:          b.Capacity,
			Coords:            b.Coords,
			MedianUtilization: map[string]float64{YearMedianKey: b.MedianUtilization},
		}
	}
	return branches, nil
}

// LoadChunk reads a daily chunk: a JSON array aligned with the base file.
// Column names may be timestamps ("2016-01-01 00:00:00", RFC 3339) or
// unix seconds; all are normalised to unix seconds.
func LoadChunk(r io.Reader) (Chunk, error) {
	var raw []map[string]float64
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode chunk: %w", err)
	}

	chunk := make(Chunk, len(raw))
	for i, row := range raw {
		out := make(map[string]float64, len(row))
		for k, v := range row {
			key, err := normaliseKey(k)
			if err != nil {
				return nil, err
			}
			out[key] = v
		}
		chunk[i] = out
	}
	return chunk, nil
}

func normaliseKey(k string) (string, error) {
	if _, err := strconv.ParseInt(k, 10, 64); err == nil {
		return k, nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05", time.RFC3339} {
		if t, err := time.ParseInLocation(layout, k, time.UTC); err == nil {
			return strconv.FormatInt(t.Unix(), 10), nil
		}
	}
	return "", fmt.Errorf("unrecognised timestamp column %q", k)
}

// Merge folds a chunk into the running dataset position by position. An
// empty running dataset is replaced by the chunk's series; an empty chunk
// leaves it unchanged. Positions beyond the running dataset are ignored.
func Merge(running []Branch, chunk Chunk) []Branch {
	if len(running) == 0 {
		out := make([]Branch, len(chunk))
		for i, series := range chunk {
			out[i] = Branch{MedianUtilization: copySeries(series)}
		}
		return out
	}
	for i := range running {
		if i >= len(chunk) {
			break
		}
		if running[i].MedianUtilization == nil {
			running[i].MedianUtilization = map[string]float64{}
		}
		for k, v := range chunk[i] {
			running[i].MedianUtilization[k] = v
		}
	}
	return running
}

func copySeries(s map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Range is an inclusive span of unix seconds.
type Range struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// TimeRange spans the numeric keys of a series. Non-numeric keys such as
// YearMedianKey are skipped; ok is false when no numeric key exists.
func TimeRange(series map[string]float64) (Range, bool) {
	r := Range{Start: math.MaxInt64, End: math.MinInt64}
	found := false
	for k := range series {
		t, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		found = true
		r.Start = min(r.Start, t)
		r.End = max(r.End, t)
	}
	return r, found
}

// Clamp moves the start up to the selected start when the selection begins
// after the data, and pushes the end out to the selected end when the
// selection runs past the data.
func Clamp(r Range, selection Range) Range {
	if selection.Start > r.Start {
		r.Start = selection.Start
	}
	if selection.End > r.End {
		r.End = selection.End
	}
	return r
}

// ChunkNames returns the names of n daily chunks starting at startMonth:
// util{i+startMonth-1} for i in 1..n, capped at MaxChunks.
func ChunkNames(startMonth, n int) []string {
	if startMonth < 1 {
		startMonth = 1
	}
	n = min(max(n, 0), MaxChunks)
	names := make([]string, n)
	for i := 1; i <= n; i++ {
		names[i-1] = fmt.Sprintf("util%d.json", i+startMonth-1)
	}
	return names
}

// Chunks lazily fetches the named chunks in order. A missing chunk ends
// the sequence; any other failure is yielded and ends it too.
func Chunks(ctx context.Context, fsys fs.FS, names []string) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		for _, name := range names {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			f, err := fsys.Open(name)
			if errors.Is(err, fs.ErrNotExist) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			chunk, err := LoadChunk(f)
			f.Close()
			if err != nil {
				yield(nil, fmt.Errorf("%s: %w", name, err))
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// Result is the assembled dataset and the range a slider would cover.
type Result struct {
	Branches []Branch `json:"branches"`
	Range    Range    `json:"range"`
	Chunks   int      `json:"chunks"`
}

// Assemble merges every available chunk into base and clamps the data's
// time range to the selection.
func Assemble(ctx context.Context, fsys fs.FS, base []Branch, names []string, selection Range) (Result, error) {
	res := Result{Branches: base}
	for chunk, err := range Chunks(ctx, fsys, names) {
		if err != nil {
			return res, err
		}
		res.Branches = Merge(res.Branches, chunk)
		res.Chunks++
	}

	if len(res.Branches) > 0 {
		if r, ok := TimeRange(res.Branches[0].MedianUtilization); ok {
			res.Range = Clamp(r, selection)
		}
	}
	return res, nil
}
