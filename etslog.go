// Package etslog interprets the tagged comma separated log files written by
// an automated ETS test fixture.
//
// Every record in a log starts with an integer tag that decides what the rest
// of the record means. Records are classified, decoded into typed values and
// then grouped into three parallel collections: requirement definitions, one
// block of measurements per site per test run, and one summary per site per
// test run.
package etslog // import "kastelo.dev/etslog"

import (
	"fmt"
	"strconv"
)

// RowTag is the leading integer of a log record.
type RowTag int

const (
	TagUnknown          RowTag = -1
	TagConfigDefinition RowTag = 10
	TagMeasurement      RowTag = 100
	TagHeader           RowTag = 120
	TagHeader2          RowTag = 125
	TagTestSummary      RowTag = 130
	TagFileInfo         RowTag = 140
	TagWarning          RowTag = 145
)

var tagNames = map[RowTag]string{
	TagUnknown:          "unknown",
	TagConfigDefinition: "config",
	TagMeasurement:      "measurement",
	TagHeader:           "header",
	TagHeader2:          "header2",
	TagTestSummary:      "summary",
	TagFileInfo:         "file-info",
	TagWarning:          "warning",
}

func (t RowTag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("RowTag(%d)", int(t))
}

// Record is one decoded log record. The set of implementations is closed:
// ConfigDefinition, Measurement, TestSummary and UnclassifiedRow.
type Record interface {
	Tag() RowTag
	record()
}

// Limit is a requirement limit that may be absent from the log.
type Limit struct {
	Value float64
	Valid bool
}

// String returns the shortest representation of the limit, or the empty
// string when absent.
func (l Limit) String() string {
	if !l.Valid {
		return ""
	}
	return strconv.FormatFloat(l.Value, 'f', -1, 64)
}

// ConfigDefinition defines a measured requirement. The order of definitions in
// the log is the order of the measurements in every block.
type ConfigDefinition struct {
	RequirementID   string
	DecimalPosition int
	Min             Limit
	Max             Limit
	Unit            string
	Name            string
}

// Measurement is one requirement measured once on one site in one test run.
type Measurement struct {
	RequirementID string
	Issue         string
	Passed        bool
	Value         float64
}

// TestSummary closes the measurements of one site in one test run.
type TestSummary struct {
	SiteNumber    int
	TimeCompleted string
	SerialNumber  string
	Passed        bool
	Unknown1      string
	Unknown2      string
	BinNumber     int
	Unknown3      string
	Unknown4      string
}

// UnclassifiedRow carries any record that is not a definition, measurement or
// summary. Fields excludes the tag itself.
type UnclassifiedRow struct {
	RowTag RowTag
	Fields []string
}

func (ConfigDefinition) Tag() RowTag  { return TagConfigDefinition }
func (Measurement) Tag() RowTag       { return TagMeasurement }
func (TestSummary) Tag() RowTag       { return TagTestSummary }
func (r UnclassifiedRow) Tag() RowTag { return r.RowTag }

func (ConfigDefinition) record() {}
func (Measurement) record()      {}
func (TestSummary) record()      {}
func (UnclassifiedRow) record()  {}

// Results is everything extracted from one log file, in file order.
type Results struct {
	Path      string
	Configs   []ConfigDefinition
	Blocks    [][]Measurement
	Summaries []TestSummary
	Other     []UnclassifiedRow
}
