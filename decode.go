package etslog

import (
	"errors"
	"strconv"
	"strings"
)

var knownTags = map[int]RowTag{
	10:  TagConfigDefinition,
	100: TagMeasurement,
	130: TagTestSummary,
	145: TagWarning,
	120: TagHeader,
	125: TagHeader2,
	140: TagFileInfo,
}

// Classify returns the tag of a record. Tags that are integers but not known
// give TagUnknown without an error.
func Classify(fields []string) (RowTag, error) {
	if len(fields) == 0 {
		return TagUnknown, &MalformedRowError{}
	}
	n, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return TagUnknown, &MalformedRowError{Value: fields[0], Err: err}
	}
	tag, ok := knownTags[n]
	if !ok {
		return TagUnknown, nil
	}
	return tag, nil
}

// DecodeOptions changes how lenient the decoder is.
type DecodeOptions struct {
	// StrictPassFail rejects pass/fail markers other than "p" and "f"
	// instead of reading them as a fail.
	StrictPassFail bool
}

// Decode converts the fields of a classified record, tag included, into its
// typed form.
func Decode(tag RowTag, fields []string, opts DecodeOptions) (Record, error) {
	d := decoder{tag: tag, fields: fields, strict: opts.StrictPassFail}

	switch tag {
	case TagConfigDefinition:
		rec := ConfigDefinition{
			RequirementID:   d.str(1, "requirement_id"),
			DecimalPosition: d.integer(2, "decimal_position"),
			Min:             d.limit(3, "min"),
			Max:             d.limit(4, "max"),
			Unit:            d.str(5, "unit"),
			Name:            d.str(6, "name"),
		}
		return rec, d.err

	case TagMeasurement:
		rec := Measurement{
			RequirementID: d.str(1, "requirement_id"),
			Issue:         d.str(2, "issue"),
			Passed:        d.passFail(3, "passed"),
			Value:         d.number(4, "value"),
		}
		return rec, d.err

	case TagTestSummary:
		rec := TestSummary{
			SiteNumber:    d.integer(1, "site_number"),
			TimeCompleted: d.str(2, "time_completed"),
			SerialNumber:  d.str(3, "serial_number"),
			Passed:        d.passFail(4, "passed"),
			Unknown1:      d.str(5, "unknown1"),
			Unknown2:      d.str(6, "unknown2"),
			BinNumber:     d.integer(7, "bin_number"),
			Unknown3:      d.str(8, "unknown3"),
			Unknown4:      d.str(9, "unknown4"),
		}
		return rec, d.err

	default:
		var rest []string
		if len(fields) > 1 {
			rest = append(rest, fields[1:]...)
		}
		return UnclassifiedRow{RowTag: tag, Fields: rest}, nil
	}
}

// decoder remembers the first error so that a record can be built field by
// field without checking after every conversion.
type decoder struct {
	tag    RowTag
	fields []string
	strict bool
	err    error
}

func (d *decoder) fail(idx int, name, value, reason string, err error) {
	if d.err == nil {
		d.err = &DecodeError{Tag: d.tag, Field: idx, Name: name, Value: value, Reason: reason, Err: err}
	}
}

func (d *decoder) str(idx int, name string) string {
	if idx >= len(d.fields) {
		d.fail(idx, name, "", "missing field", nil)
		return ""
	}
	return d.fields[idx]
}

func (d *decoder) integer(idx int, name string) int {
	s := d.str(idx, name)
	if d.err != nil {
		return 0
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		d.fail(idx, name, s, "", err)
	}
	return v
}

func (d *decoder) number(idx int, name string) float64 {
	s := d.str(idx, name)
	if d.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		d.fail(idx, name, s, "", err)
	}
	return v
}

func (d *decoder) limit(idx int, name string) Limit {
	return ParseLimit(d.str(idx, name))
}

var errPassFail = errors.New("expected P or F")

func (d *decoder) passFail(idx int, name string) bool {
	s := d.str(idx, name)
	if d.strict && d.err == nil && !isPassFail(s) {
		d.fail(idx, name, s, "", errPassFail)
	}
	return ParsePassFail(s)
}

// ParseLimit reads an optional limit. Anything that is not a number gives an
// absent limit; some fixtures leave limits out.
func ParseLimit(s string) Limit {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return Limit{}
	}
	return Limit{Value: v, Valid: true}
}

// ParsePassFail reads a pass/fail marker. Only "p" (any case) is a pass;
// unrecognized markers count as a fail.
func ParsePassFail(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "p")
}

func isPassFail(s string) bool {
	s = strings.TrimSpace(s)
	return strings.EqualFold(s, "p") || strings.EqualFold(s, "f")
}

// FormatPassFail is the inverse of ParsePassFail.
func FormatPassFail(passed bool) string {
	if passed {
		return "P"
	}
	return "F"
}
