package scenario

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var ErrUnknownSchema = errors.New("unknown data schema")

// Record holds the keys shared by every scenario record. ScenarioID is the
// table's partition key and ID its sort key. ScenarioID is nil when the
// source left it out or null.
type Record struct {
	ID         string `json:"id" dynamodbav:"id"`
	ScenarioID *int   `json:"scenario_id" dynamodbav:"scenario_id,omitempty"`
}

type PowerFlow struct {
	Record
	FromZone          string   `json:"from_zone" dynamodbav:"from_zone"`
	ToZone            string   `json:"to_zone" dynamodbav:"to_zone"`
	Interconnect      string   `json:"interconnect" dynamodbav:"interconnect"`
	MedianUtilization *float64 `json:"median_utilization" dynamodbav:"median_utilization"`
	Risk              *float64 `json:"risk" dynamodbav:"risk"`
	Bind              *float64 `json:"bind" dynamodbav:"bind"`
	BranchID          *int     `json:"branch_id" dynamodbav:"branch_id"`
	LocRollup         string   `json:"LOC_ROLLUP" dynamodbav:"LOC_ROLLUP"`
	TimeRollup        string   `json:"TIME_ROLLUP" dynamodbav:"TIME_ROLLUP"`
}

type PowerGeneration struct {
	Record
	Timestamp    string   `json:"timestamp" dynamodbav:"timestamp"`
	PlantID      *int     `json:"plant_id" dynamodbav:"plant_id"`
	Zone         string   `json:"zone" dynamodbav:"zone"`
	Interconnect string   `json:"interconnect" dynamodbav:"interconnect"`
	LocRollup    string   `json:"LOC_ROLLUP" dynamodbav:"LOC_ROLLUP"`
	TimeRollup   string   `json:"TIME_ROLLUP" dynamodbav:"TIME_ROLLUP"`
	ResourceType string   `json:"resource_type" dynamodbav:"resource_type"`
	Generation   *float64 `json:"generation" dynamodbav:"generation"`
	Curtailment  *float64 `json:"curtailment" dynamodbav:"curtailment"`
}

// Entry is a decoded record of either schema.
type Entry interface {
	Base() *Record
	// MissingFields lists the required fields that are null or empty.
	MissingFields() []string
}

func (r *Record) Base() *Record { return r }

// PartitionKey is the scenario id, or zero when it is missing.
func (r *Record) PartitionKey() int {
	if r.ScenarioID == nil {
		return 0
	}
	return *r.ScenarioID
}

// AssignID overwrites the record identifier with a fresh UUID.
func (r *Record) AssignID() {
	r.ID = uuid.NewString()
}

func (p *PowerFlow) MissingFields() []string {
	return missing(p, powerFlowFields)
}

func (p *PowerGeneration) MissingFields() []string {
	return missing(p, powerGenerationFields)
}

type Schema string

const (
	PowerFlowSchema       Schema = "PowerFlow"
	PowerGenerationSchema Schema = "PowerGeneration"
)

func ParseSchema(name string) (Schema, error) {
	switch s := Schema(name); s {
	case PowerFlowSchema, PowerGenerationSchema:
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSchema, name)
}

// Prefix is the two-letter file name prefix of the schema's source files.
func (s Schema) Prefix() string {
	switch s {
	case PowerFlowSchema:
		return "pf"
	case PowerGenerationSchema:
		return "pg"
	}
	return ""
}

// Fields returns the schema's field table in declaration order.
func (s Schema) Fields() []FieldRule {
	switch s {
	case PowerFlowSchema:
		return rules(powerFlowFields)
	case PowerGenerationSchema:
		return rules(powerGenerationFields)
	}
	return nil
}

// Rule says whether a field may legitimately be empty in source data.
type Rule int

const (
	Required Rule = iota
	Nullable
)

func (r Rule) String() string {
	if r == Nullable {
		return "nullable"
	}
	return "required"
}

type FieldRule struct {
	Name string
	Rule Rule
}

// nullableMarkers name the field families that are sometimes empty in the
// simulation output: zone lookups, interconnects and plant identifiers.
var nullableMarkers = []string{"zone", "interconnect", "plant_id"}

// RuleFor derives the rule for a field name from the nullable markers.
func RuleFor(name string) Rule {
	for _, m := range nullableMarkers {
		if strings.Contains(name, m) {
			return Nullable
		}
	}
	return Required
}

type field[T any] struct {
	name  string
	rule  Rule
	empty func(*T) bool
}

var powerFlowFields = []field[PowerFlow]{
	{"id", Required, func(p *PowerFlow) bool { return p.ID == "" }},
	{"scenario_id", Required, func(p *PowerFlow) bool { return p.ScenarioID == nil }},
	{"from_zone", Nullable, func(p *PowerFlow) bool { return p.FromZone == "" }},
	{"to_zone", Nullable, func(p *PowerFlow) bool { return p.ToZone == "" }},
	{"interconnect", Nullable, func(p *PowerFlow) bool { return p.Interconnect == "" }},
	{"median_utilization", Required, func(p *PowerFlow) bool { return p.MedianUtilization == nil }},
	{"risk", Required, func(p *PowerFlow) bool { return p.Risk == nil }},
	{"bind", Required, func(p *PowerFlow) bool { return p.Bind == nil }},
	{"branch_id", Required, func(p *PowerFlow) bool { return p.BranchID == nil }},
	{"LOC_ROLLUP", Required, func(p *PowerFlow) bool { return p.LocRollup == "" }},
	{"TIME_ROLLUP", Required, func(p *PowerFlow) bool { return p.TimeRollup == "" }},
}

var powerGenerationFields = []field[PowerGeneration]{
	{"id", Required, func(p *PowerGeneration) bool { return p.ID == "" }},
	{"scenario_id", Required, func(p *PowerGeneration) bool { return p.ScenarioID == nil }},
	{"timestamp", Required, func(p *PowerGeneration) bool { return p.Timestamp == "" }},
	{"plant_id", Nullable, func(p *PowerGeneration) bool { return p.PlantID == nil }},
	{"zone", Nullable, func(p *PowerGeneration) bool { return p.Zone == "" }},
	{"interconnect", Nullable, func(p *PowerGeneration) bool { return p.Interconnect == "" }},
	{"LOC_ROLLUP", Required, func(p *PowerGeneration) bool { return p.LocRollup == "" }},
	{"TIME_ROLLUP", Required, func(p *PowerGeneration) bool { return p.TimeRollup == "" }},
	{"resource_type", Required, func(p *PowerGeneration) bool { return p.ResourceType == "" }},
	{"generation", Required, func(p *PowerGeneration) bool { return p.Generation == nil }},
	{"curtailment", Required, func(p *PowerGeneration) bool { return p.Curtailment == nil }},
}

func missing[T any](rec *T, fields []field[T]) []string {
	var names []string
	for _, f := range fields {
		if f.rule == Required && f.empty(rec) {
			names = append(names, f.name)
		}
	}
	return names
}

func rules[T any](fields []field[T]) []FieldRule {
	out := make([]FieldRule, len(fields))
	for i, f := range fields {
		out[i] = FieldRule{Name: f.name, Rule: f.rule}
	}
	return out
}
