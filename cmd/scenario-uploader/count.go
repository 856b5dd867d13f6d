package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"scenario-uploader/internal/dynamodb"
)

var countCmd = &cobra.Command{
	Use:   "count <table> <scenario-id>",
	Short: "Count the records stored for a scenario",
	Args:  cobra.ExactArgs(2),
	RunE:  runCount,
}

func runCount(cmd *cobra.Command, args []string) error {
	table := args[0]
	scenarioID, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid scenario id %q: %w", args[1], err)
	}

	client, err := dynamodb.NewClient(cmd.Context(), dynamoOptions(cfg), logger)
	if err != nil {
		return err
	}

	n, err := client.CountScenario(cmd.Context(), table, scenarioID)
	if err != nil {
		return err
	}
	logger.Debug("counted scenario records", zap.String("table", table), zap.Int("scenario_id", scenarioID), zap.Int64("count", n))
	fmt.Fprintf(cmd.OutOrStdout(), "%d\n", n)
	return nil
}
