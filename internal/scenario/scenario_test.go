package scenario

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const powerFlowJSON = `[
  {"id": "stale", "scenario_id": 1270, "from_zone": "Arizona", "to_zone": "", "interconnect": "Western",
   "median_utilization": 0.42, "risk": 0, "bind": 3, "branch_id": 101, "LOC_ROLLUP": "zone", "TIME_ROLLUP": "year"},
  {"scenario_id": 1270, "from_zone": "", "to_zone": "", "interconnect": "",
   "median_utilization": 0.1, "risk": 1.5, "bind": 0, "branch_id": 102, "LOC_ROLLUP": "zone", "TIME_ROLLUP": "year"},
  {"scenario_id": 1271, "from_zone": "Utah", "to_zone": "Nevada", "interconnect": "Western",
   "risk": 2, "bind": 1, "branch_id": 103, "LOC_ROLLUP": "", "TIME_ROLLUP": "year"}
]`

const powerGenerationJSON = `[
  {"scenario_id": 823, "timestamp": "2016-01-01T00:00:00", "plant_id": null, "zone": "", "interconnect": "Eastern",
   "LOC_ROLLUP": "interconnect", "TIME_ROLLUP": "hour", "resource_type": "solar", "generation": 12.5, "curtailment": 0}
]`

type mapOpener map[string]string

func (m mapOpener) Open(_ context.Context, name string) (io.ReadCloser, error) {
	body, ok := m[name]
	if !ok {
		return nil, errors.New("no such file")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func TestParseSchema(t *testing.T) {
	s, err := ParseSchema("PowerFlow")
	require.NoError(t, err)
	assert.Equal(t, PowerFlowSchema, s)
	assert.Equal(t, "pf", s.Prefix())

	s, err = ParseSchema("PowerGeneration")
	require.NoError(t, err)
	assert.Equal(t, "pg", s.Prefix())

	_, err = ParseSchema("Emissions")
	assert.ErrorIs(t, err, ErrUnknownSchema)
}

func TestDecodeAssignsFreshDistinctIDs(t *testing.T) {
	entries, err := Decode(strings.NewReader(powerFlowJSON), PowerFlowSchema)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	seen := map[string]bool{}
	for _, e := range entries {
		id := e.Base().ID
		assert.NotEmpty(t, id)
		assert.NotEqual(t, "stale", id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Equal(t, 1270, entries[0].Base().PartitionKey())
	assert.Equal(t, 1271, entries[2].Base().PartitionKey())
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"scenario_id": 1}`), PowerFlowSchema)
	assert.Error(t, err)

	_, err = Decode(strings.NewReader(`[]`), Schema("Bogus"))
	assert.ErrorIs(t, err, ErrUnknownSchema)

	_, err = Decode(strings.NewReader(`[{"scenario_id": 1}] [{"scenario_id": 2}]`), PowerFlowSchema)
	assert.Error(t, err)

	_, err = Decode(strings.NewReader(`[{"scenario_id": 1}] junk`), PowerFlowSchema)
	assert.Error(t, err)

	entries, err := Decode(strings.NewReader("[{\"scenario_id\": 1}]\n"), PowerFlowSchema)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFieldTablesFollowNullableMarkers(t *testing.T) {
	for _, s := range []Schema{PowerFlowSchema, PowerGenerationSchema} {
		fields := s.Fields()
		require.NotEmpty(t, fields)
		for _, f := range fields {
			assert.Equal(t, RuleFor(f.Name), f.Rule, "%s.%s", s, f.Name)
		}
	}
	assert.Equal(t, Nullable, RuleFor("from_zone"))
	assert.Equal(t, Nullable, RuleFor("plant_id"))
	assert.Equal(t, Required, RuleFor("risk"))
}

func TestCheckFlagsOnlyRequiredEmptyFields(t *testing.T) {
	entries, err := Decode(strings.NewReader(powerFlowJSON), PowerFlowSchema)
	require.NoError(t, err)

	issues := Check(entries)
	assert.Equal(t, []Issue{
		{Index: 2, Field: "median_utilization"},
		{Index: 2, Field: "LOC_ROLLUP"},
	}, issues)

	gen, err := Decode(strings.NewReader(powerGenerationJSON), PowerGenerationSchema)
	require.NoError(t, err)
	assert.Empty(t, Check(gen))
}

func TestCheckFlagsMissingScenarioID(t *testing.T) {
	const rows = `[
  {"from_zone": "Utah", "to_zone": "Nevada", "interconnect": "Western", "median_utilization": 0.4, "risk": 0, "bind": 0, "branch_id": 1, "LOC_ROLLUP": "zone", "TIME_ROLLUP": "year"},
  {"scenario_id": null, "from_zone": "Utah", "to_zone": "Idaho", "interconnect": "Western", "median_utilization": 0.5, "risk": 1, "bind": 2, "branch_id": 2, "LOC_ROLLUP": "zone", "TIME_ROLLUP": "year"},
  {"scenario_id": 0, "from_zone": "Texas", "to_zone": "Texas", "interconnect": "ERCOT", "median_utilization": 0.9, "risk": 3, "bind": 7, "branch_id": 3, "LOC_ROLLUP": "zone", "TIME_ROLLUP": "year"}
]`
	entries, err := Decode(strings.NewReader(rows), PowerFlowSchema)
	require.NoError(t, err)

	assert.Equal(t, []Issue{
		{Index: 0, Field: "scenario_id"},
		{Index: 1, Field: "scenario_id"},
	}, Check(entries))
	require.NotNil(t, entries[2].Base().ScenarioID)
	assert.Equal(t, 0, entries[2].Base().PartitionKey())

	items, err := ToItems(entries)
	require.NoError(t, err)
	assert.NotContains(t, items[0].Payload, "scenario_id")
	assert.NotContains(t, items[1].Payload, "scenario_id")
	assert.Equal(t, &types.AttributeValueMemberN{Value: "0"}, items[2].Payload["scenario_id"])
}

func TestToItemsKeysByScenario(t *testing.T) {
	entries, err := Decode(strings.NewReader(powerFlowJSON), PowerFlowSchema)
	require.NoError(t, err)

	items, err := ToItems(entries)
	require.NoError(t, err)
	require.Len(t, items, len(entries))

	for i, item := range items {
		assert.Equal(t, entries[i].Base().PartitionKey(), item.PartitionKey)
		assert.Equal(t, entries[i].Base().ID, item.ID)

		sid, ok := item.Payload["scenario_id"].(*types.AttributeValueMemberN)
		require.True(t, ok)
		assert.NotEmpty(t, sid.Value)

		back, err := FromItem(item.Payload, PowerFlowSchema)
		require.NoError(t, err)
		assert.Equal(t, item.PartitionKey, back.Base().PartitionKey())
		assert.Equal(t, item.ID, back.Base().ID)
	}

	pf := items[0].Payload
	assert.Contains(t, pf, "from_zone")
	assert.Contains(t, pf, "LOC_ROLLUP")
}

func TestReadFile(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	src := mapOpener{
		"pf_good.json":   powerFlowJSON,
		"pf_broken.json": `[{"scenario_id": "not a number"}]`,
	}

	entries := ReadFile(context.Background(), src, "pf_good.json", PowerFlowSchema, logger)
	assert.Len(t, entries, 3)
	assert.Equal(t, 2, logs.FilterMessage("missing data").Len())

	entries = ReadFile(context.Background(), src, "pf_broken.json", PowerFlowSchema, logger)
	assert.Empty(t, entries)
	assert.Equal(t, 1, logs.FilterMessage("failed to read scenario file").Len())

	entries = ReadFile(context.Background(), src, "pf_missing.json", PowerFlowSchema, logger)
	assert.Empty(t, entries)
	assert.Equal(t, 1, logs.FilterMessage("failed to open scenario file").Len())
}
