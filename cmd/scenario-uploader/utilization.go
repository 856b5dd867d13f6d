package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"scenario-uploader/internal/utilization"
)

var utilizationFlags struct {
	base       string
	startMonth int
	chunks     int
	from       string
	to         string
	out        string
}

var utilizationCmd = &cobra.Command{
	Use:   "utilization <dir>",
	Short: "Merge daily utilization chunks onto the yearly branch file",
	Long: `Reads <dir>/branch.json and the chunks util<N>.json starting at the
given month, merges them into one dataset and prints the time range the
dataset covers, clamped to the --from/--to selection.`,
	Args: cobra.ExactArgs(1),
	RunE: runUtilization,
}

func init() {
	f := utilizationCmd.Flags()
	f.StringVar(&utilizationFlags.base, "base", "branch.json", "yearly branch file inside <dir>")
	f.IntVar(&utilizationFlags.startMonth, "start-month", 1, "first chunk month (1-12)")
	f.IntVar(&utilizationFlags.chunks, "chunks", utilization.MaxChunks, "number of chunks to load")
	f.StringVar(&utilizationFlags.from, "from", "2016-01-01", "selection start date (UTC)")
	f.StringVar(&utilizationFlags.to, "to", "2016-01-07", "selection end date (UTC)")
	f.StringVar(&utilizationFlags.out, "out", "", "write the merged dataset to this file")
}

func runUtilization(cmd *cobra.Command, args []string) error {
	dir := args[0]
	selection, err := parseSelection(utilizationFlags.from, utilizationFlags.to)
	if err != nil {
		return err
	}

	f, err := os.Open(filepath.Join(dir, utilizationFlags.base))
	if err != nil {
		return fmt.Errorf("failed to open base file: %w", err)
	}
	base, err := utilization.LoadBase(f)
	f.Close()
	if err != nil {
		return err
	}

	names := utilization.ChunkNames(utilizationFlags.startMonth, utilizationFlags.chunks)
	res, err := utilization.Assemble(cmd.Context(), os.DirFS(dir), base, names, selection)
	if err != nil {
		return err
	}
	logger.Info("utilization assembled",
		zap.Int("branches", len(res.Branches)),
		zap.Int("chunks", res.Chunks),
		zap.Int64("start", res.Range.Start),
		zap.Int64("end", res.Range.End))

	if utilizationFlags.out != "" {
		body, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("failed to encode dataset: %w", err)
		}
		if err := os.WriteFile(utilizationFlags.out, body, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", utilizationFlags.out, err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s - %s (%d chunks)\n",
		time.Unix(res.Range.Start, 0).UTC().Format(time.RFC3339),
		time.Unix(res.Range.End, 0).UTC().Format(time.RFC3339),
		res.Chunks)
	return nil
}

func parseSelection(from, to string) (utilization.Range, error) {
	start, err := time.Parse(time.DateOnly, from)
	if err != nil {
		return utilization.Range{}, fmt.Errorf("invalid --from: %w", err)
	}
	end, err := time.Parse(time.DateOnly, to)
	if err != nil {
		return utilization.Range{}, fmt.Errorf("invalid --to: %w", err)
	}
	if end.Before(start) {
		return utilization.Range{}, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	return utilization.Range{Start: start.Unix(), End: end.Unix()}, nil
}
