package main

import (
	"fmt"
	"os"
	"strconv"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"scenario-uploader/internal/config"
	"scenario-uploader/internal/dynamodb"
	"scenario-uploader/internal/notify"
	"scenario-uploader/internal/source"
	"scenario-uploader/internal/uploader"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <source> <schema> <table> <throughput> <logfile> [CreateContainer|UpdateContainer]",
	Short: "Upload every scenario file of a schema into a table",
	Long: `Uploads every file in <source> whose name starts with the schema prefix
(pf for PowerFlow, pg for PowerGeneration). <source> is a local directory
or an s3://bucket/prefix location; .gz files are decompressed.

Every record gets a new id, so uploading the same files twice stores
every record twice.

Example:
  scenario-uploader upload ./data PowerFlow grid-pf 10000 upload.log CreateContainer`,
	Args: cobra.RangeArgs(5, 6),
	RunE: runUpload,
}

func init() {
	f := uploadCmd.Flags()
	f.Int64("min-throughput", 400, "write capacity restored after the upload")
	f.Int("max-retries", 30, "maximum attempts per throttled write")
	f.Duration("max-retry-wait", 0, "maximum total time one write may spend retrying (default 100s)")
	f.Int("concurrency", 0, "maximum in-flight writes, 0 for unbounded")
	f.String("notify-topic", "", "SNS topic ARN that receives the run summary")
	f.BoolP("yes", "y", false, "start without waiting for a key press")
}

func runUpload(cmd *cobra.Command, args []string) error {
	location, schema, table, logFile := args[0], args[1], args[2], args[4]
	throughput, err := strconv.ParseInt(args[3], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid throughput %q: %w", args[3], err)
	}
	mode := ""
	if len(args) > 5 {
		mode = args[5]
	}
	createTable, err := config.ParseMode(mode)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Verbose, logFile)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, regionOpt(cfg.Region)...)
	if err != nil {
		return fmt.Errorf("unable to load SDK config: %w", err)
	}

	src, err := source.Parse(location, s3.NewFromConfig(awsCfg))
	if err != nil {
		return err
	}

	store, err := dynamodb.NewClient(ctx, dynamoOptions(cfg), log)
	if err != nil {
		return err
	}

	var notifier *notify.Notifier
	if cfg.NotifyTopic != "" {
		notifier = notify.New(sns.NewFromConfig(awsCfg), cfg.NotifyTopic, log)
	}

	u := uploader.New(uploader.Config{
		Schema:           schema,
		Table:            table,
		Throughput:       throughput,
		MinThroughput:    cfg.MinThroughput,
		CreateTable:      createTable,
		ProgressInterval: cfg.Progress,
	}, src, store, notifier, log)
	if !cfg.Yes {
		u.Confirm = uploader.KeyPress(os.Stdin, cmd.OutOrStdout(), "Press any key to start uploading...")
	}

	summary, err := u.Run(ctx)
	if err != nil {
		log.Error("upload failed", zap.Error(err))
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d files: %d records, %d failed writes in %s\n",
		summary.Files, summary.Records, summary.Failed, summary.Elapsed)
	return nil
}

func regionOpt(region string) []func(*awsconfig.LoadOptions) error {
	if region == "" {
		return nil
	}
	return []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
}

func dynamoOptions(c *config.Config) dynamodb.Options {
	return dynamodb.Options{
		Region:       c.Region,
		Endpoint:     c.Endpoint,
		MaxAttempts:  c.MaxRetries,
		MaxBackoff:   c.MaxBackoff,
		MaxRetryWait: c.MaxRetryWait,
		Concurrency:  c.Concurrency,
		TableWait:    c.TableWait,
	}
}
