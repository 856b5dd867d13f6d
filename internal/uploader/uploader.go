// Package uploader drives one bulk load: it lists the scenario files,
// raises the table's write capacity, writes every file's records and
// always restores the capacity afterwards.
package uploader

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"scenario-uploader/internal/dynamodb"
	"scenario-uploader/internal/notify"
	"scenario-uploader/internal/scenario"
	"scenario-uploader/internal/source"
)

const DefaultMinThroughput = 400

// Store is the table side of an upload.
type Store interface {
	EnsureTable(ctx context.Context, table string, readCapacity, writeCapacity int64) (bool, error)
	WithThroughput(ctx context.Context, table string, high, baseline int64, fn func(context.Context) error) error
	WriteAll(ctx context.Context, table string, items []scenario.Item, stats *dynamodb.Stats) dynamodb.Result
}

type Config struct {
	Schema        string
	Table         string
	Throughput    int64
	MinThroughput int64
	// CreateTable creates a missing table before uploading.
	CreateTable      bool
	ProgressInterval time.Duration
}

type Summary struct {
	Schema    string        `json:"schema"`
	Table     string        `json:"table"`
	Files     int           `json:"files"`
	Records   int           `json:"records"`
	Attempted int           `json:"attempted"`
	Written   int           `json:"written"`
	Failed    int           `json:"failed"`
	Elapsed   time.Duration `json:"elapsed_ns"`
}

type Uploader struct {
	cfg      Config
	src      source.Source
	store    Store
	logger   *zap.Logger
	notifier *notify.Notifier

	// Confirm, when set, is called once before anything is changed in
	// the table. An error aborts the run.
	Confirm func(context.Context) error
	// OnState observes every state transition.
	OnState func(State)

	state State
}

func New(cfg Config, src source.Source, store Store, notifier *notify.Notifier, logger *zap.Logger) *Uploader {
	if cfg.MinThroughput <= 0 {
		cfg.MinThroughput = DefaultMinThroughput
	}
	if cfg.Throughput <= 0 {
		cfg.Throughput = cfg.MinThroughput
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{cfg: cfg, src: src, store: store, notifier: notifier, logger: logger}
}

func (u *Uploader) State() State { return u.state }

func (u *Uploader) setState(s State) {
	u.state = s
	u.logger.Debug("state", zap.Stringer("state", s))
	if u.OnState != nil {
		u.OnState(s)
	}
}

// Run uploads every file matching the schema. Unknown schemas, an empty
// source and unconfirmed throughput changes are returned as errors; a
// failure inside one file is logged and the run moves on.
func (u *Uploader) Run(ctx context.Context) (Summary, error) {
	summary := Summary{Schema: u.cfg.Schema, Table: u.cfg.Table}

	schema, err := scenario.ParseSchema(u.cfg.Schema)
	if err != nil {
		return summary, err
	}
	files, err := source.Match(ctx, u.src, schema.Prefix())
	if err != nil {
		return summary, err
	}
	summary.Files = len(files)

	u.logger.Info("starting bulk upload",
		zap.String("started_at", time.Now().UTC().Format("2006-01-02 15:04:05")),
		zap.String("source", u.src.Location()),
		zap.String("schema", string(schema)),
		zap.String("table", u.cfg.Table),
		zap.Bool("create_table", u.cfg.CreateTable),
		zap.Int64("throughput", u.cfg.Throughput),
		zap.Int64("min_throughput", u.cfg.MinThroughput))
	u.logger.Warn("uploads are not idempotent: every run inserts new records with new ids")

	if u.Confirm != nil {
		if err := u.Confirm(ctx); err != nil {
			return summary, fmt.Errorf("upload not confirmed: %w", err)
		}
	}
	u.logger.Info("found files to upload", zap.Int("count", len(files)), zap.String("schema", string(schema)))

	if u.cfg.CreateTable {
		if _, err := u.store.EnsureTable(ctx, u.cfg.Table, u.cfg.MinThroughput, u.cfg.Throughput); err != nil {
			return summary, err
		}
	}

	start := time.Now()
	var stats dynamodb.Stats
	stop := startProgress(u.logger, &stats, u.cfg.ProgressInterval)

	raised := false
	err = u.store.WithThroughput(ctx, u.cfg.Table, u.cfg.Throughput, u.cfg.MinThroughput, func(ctx context.Context) error {
		raised = true
		u.setState(ThroughputRaised)
		u.setState(Writing)
		for _, name := range files {
			summary.Records += u.uploadFile(ctx, name, schema, &stats)
		}
		return nil
	})
	stop()
	if raised {
		u.setState(ThroughputLowered)
	}
	u.setState(Idle)

	summary.Attempted = int(stats.Attempted.Load())
	summary.Written = int(stats.Written.Load())
	summary.Failed = int(stats.Failed.Load())
	summary.Elapsed = time.Since(start)

	u.logger.Info("bulk upload finished",
		zap.Int("files", summary.Files),
		zap.Int("records", summary.Records),
		zap.Int("attempted", summary.Attempted),
		zap.Int("written", summary.Written),
		zap.Int("failed", summary.Failed),
		zap.Duration("elapsed", summary.Elapsed))

	_ = u.notifier.Publish(context.WithoutCancel(ctx), "scenario upload "+u.cfg.Table, summary)
	return summary, err
}

// uploadFile writes one file and returns how many records it held. Panics
// are confined to the file that raised them.
func (u *Uploader) uploadFile(ctx context.Context, name string, schema scenario.Schema, stats *dynamodb.Stats) (records int) {
	defer func() {
		if r := recover(); r != nil {
			u.logger.Error("upload of file aborted", zap.String("file", name), zap.Any("panic", r))
		}
	}()

	u.logger.Info("uploading file", zap.String("file", name))
	entries := scenario.ReadFile(ctx, u.src, name, schema, u.logger)
	records = len(entries)

	items, err := scenario.ToItems(entries)
	if err != nil {
		u.logger.Error("failed to prepare items", zap.String("file", name), zap.Error(err))
		return records
	}
	u.logger.Info("prepared items", zap.String("file", name), zap.Int("count", len(items)))

	start := time.Now()
	res := u.store.WriteAll(ctx, u.cfg.Table, items, stats)
	u.logger.Info("finished writing file",
		zap.String("file", name),
		zap.Int("attempted", res.Attempted),
		zap.Int("written", res.Written),
		zap.Int("failed", res.Failed),
		zap.Duration("elapsed", time.Since(start)))
	return records
}
