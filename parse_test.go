package etslog

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestParse(t *testing.T) {
	expected := &Results{
		Path: "testdata/two_sites.log",
		Configs: []ConfigDefinition{
			{
				RequirementID: "R1", DecimalPosition: 2,
				Min:  Limit{Value: 0, Valid: true},
				Max:  Limit{Value: 10, Valid: true},
				Unit: "V", Name: "Supply voltage",
			},
			{
				RequirementID: "R2", DecimalPosition: 3,
				Min:  Limit{Value: -1.5, Valid: true},
				Unit: "mA", Name: "Leakage, input",
			},
		},
		Blocks: [][]Measurement{
			{{RequirementID: "R1", Passed: true, Value: 5.0}, {RequirementID: "R2", Passed: true, Value: 0.125}},
			{{RequirementID: "R1", Passed: true, Value: 5.1}, {RequirementID: "R2", Passed: false, Value: 2.5}},
			{{RequirementID: "R1", Passed: true, Value: 4.9}, {RequirementID: "R2", Passed: true, Value: 0.2}},
			{{RequirementID: "R1", Passed: true, Value: 5.05}, {RequirementID: "R2", Passed: true, Value: 0.3}},
		},
		Summaries: []TestSummary{
			{SiteNumber: 1, TimeCompleted: "2024-03-05 10:14:02", SerialNumber: "SN001", Passed: true, Unknown1: "x1", Unknown2: "x2", BinNumber: 1, Unknown3: "x3", Unknown4: "x4"},
			{SiteNumber: 2, TimeCompleted: "2024-03-05 10:14:02", SerialNumber: "SN002", Passed: false, Unknown1: "x1", Unknown2: "x2", BinNumber: 4, Unknown3: "x3", Unknown4: "x4"},
			{SiteNumber: 1, TimeCompleted: "2024-03-05 10:15:40", SerialNumber: "SN003", Passed: true, Unknown1: "x1", Unknown2: "x2", BinNumber: 1, Unknown3: "x3", Unknown4: "x4"},
			{SiteNumber: 2, TimeCompleted: "2024-03-05 10:15:40", SerialNumber: "SN004", Passed: true, Unknown1: "x1", Unknown2: "x2", BinNumber: 1, Unknown3: "x3", Unknown4: "x4"},
		},
		Other: []UnclassifiedRow{
			{RowTag: TagFileInfo, Fields: []string{`C:\ETS\Data\lot42.log`, "ETS-364B", "v3.1"}},
			{RowTag: TagHeader, Fields: []string{"Program", "Lot", "Operator"}},
			{RowTag: TagHeader2, Fields: []string{"AMP_FT", "LOT42", "jdoe"}},
			{RowTag: TagWarning, Fields: []string{"Handler jam cleared"}},
		},
	}

	res, err := ParseFile("testdata/two_sites.log", Options{Logger: quiet})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(expected, res); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	lay, err := DeriveLayout(res, LayoutOptions{CheckRequirementIDs: true})
	if err != nil {
		t.Fatal(err)
	}
	want := Layout{SiteCount: 2, Runs: 4, TestCount: 2, RequirementCount: 2, Sites: []int{1, 2}}
	if diff := cmp.Diff(want, lay); diff != "" {
		t.Errorf("layout mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRoundTrip(t *testing.T) {
	log := strings.Join([]string{
		"10,R1,2,0.0,10.0,V,Name",
		"100,R1,,P,5.0",
		"130,1,t,SN1,P,a,b,1,c,d",
		"100,R1,,P,5.0",
		"130,2,t,SN2,F,a,b,3,c,d",
	}, "\n")

	res, err := Parse(strings.NewReader(log), "synthetic.log", Options{Logger: quiet})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Configs) != 1 {
		t.Errorf("got %d configs, expected 1", len(res.Configs))
	}
	if len(res.Blocks) != 2 || len(res.Blocks[0]) != 1 || len(res.Blocks[1]) != 1 {
		t.Errorf("expected two one-element blocks, got %v", res.Blocks)
	}
	if len(res.Summaries) != 2 {
		t.Fatalf("got %d summaries, expected 2", len(res.Summaries))
	}
	if !res.Summaries[0].Passed || res.Summaries[1].Passed {
		t.Errorf("unexpected pass flags %v, %v", res.Summaries[0].Passed, res.Summaries[1].Passed)
	}

	lay, err := DeriveLayout(res, LayoutOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if lay.SiteCount != 2 || lay.TestCount != 1 || lay.RequirementCount != 1 {
		t.Errorf("unexpected layout %+v", lay)
	}
}

func TestParseDecodeErrorLine(t *testing.T) {
	_, err := ParseFile("testdata/bad_value.log", Options{Logger: quiet})
	if err == nil {
		t.Fatal("unexpected success")
	}

	var lerr *LineError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected *LineError, got %T: %v", err, err)
	}
	if lerr.Line != 1 {
		t.Errorf("error on line %d, expected 1", lerr.Line)
	}
	if lerr.Path != "testdata/bad_value.log" {
		t.Errorf("error path %q", lerr.Path)
	}

	var derr *DecodeError
	if !errors.As(err, &derr) {
		t.Fatalf("expected *DecodeError, got %T: %v", err, err)
	}
	if derr.Field != 4 || derr.Tag != TagMeasurement {
		t.Errorf("unexpected decode error %+v", derr)
	}
	if msg := err.Error(); !strings.Contains(msg, "testdata/bad_value.log") || !strings.Contains(msg, "line 1") {
		t.Errorf("message lacks location: %s", msg)
	}
}

func TestParseMalformedTag(t *testing.T) {
	log := "10,R1,2,0.0,10.0,V,Name\nabc,1,2\n"
	_, err := Parse(strings.NewReader(log), "tag.log", Options{Logger: quiet})

	var merr *MalformedRowError
	if !errors.As(err, &merr) {
		t.Fatalf("expected *MalformedRowError, got %T: %v", err, err)
	}
	var lerr *LineError
	if !errors.As(err, &lerr) || lerr.Line != 1 {
		t.Errorf("expected line 1, got %v", err)
	}
}

func TestParseUnknownTagContinues(t *testing.T) {
	var logged strings.Builder
	logger := slog.New(slog.NewTextHandler(&logged, nil))

	log := strings.Join([]string{
		"10,R1,2,0.0,10.0,V,Name",
		"999,whatever,1,2",
		"100,R1,,P,5.0",
		"130,1,t,SN1,P,a,b,1,c,d",
	}, "\n")

	res, err := Parse(strings.NewReader(log), "unknown.log", Options{Logger: logger})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Blocks) != 1 || len(res.Summaries) != 1 {
		t.Errorf("rows after the unknown tag were lost: %+v", res)
	}
	if len(res.Other) != 1 || res.Other[0].RowTag != TagUnknown {
		t.Errorf("unknown row not kept: %+v", res.Other)
	}
	if !strings.Contains(logged.String(), "tag=999") {
		t.Errorf("unknown tag not logged: %s", logged.String())
	}
}

func TestParseEncodings(t *testing.T) {
	cases := []struct {
		file string
		enc  string
	}{
		{"testdata/bom.log", ""},
		{"testdata/latin1.log", "ISO-8859-1"},
		{"testdata/latin1.log", "windows-1252"},
	}

	for _, c := range cases {
		res, err := ParseFile(c.file, Options{Encoding: c.enc, Logger: quiet})
		if err != nil {
			t.Errorf("%s (%s): %v", c.file, c.enc, err)
			continue
		}
		if len(res.Configs) != 1 {
			t.Errorf("%s (%s): got %d configs", c.file, c.enc, len(res.Configs))
			continue
		}
		if cfg := res.Configs[0]; cfg.Unit != "µA" || cfg.Name != "Bias µ" {
			t.Errorf("%s (%s): got unit %q name %q", c.file, c.enc, cfg.Unit, cfg.Name)
		}
	}
}

func TestParseUnknownEncoding(t *testing.T) {
	_, err := Parse(strings.NewReader(""), "x.log", Options{Encoding: "no-such-charset"})
	if err == nil {
		t.Error("unexpected success")
	}
}

func TestParseStrictPassFail(t *testing.T) {
	log := "100,R1,,X,5.0\n"

	res, err := Parse(strings.NewReader(log), "lenient.log", Options{Logger: quiet})
	if err != nil {
		t.Fatal(err)
	}
	if res.Blocks[0][0].Passed {
		t.Error("unrecognized marker read as a pass")
	}

	_, err = Parse(strings.NewReader(log), "strict.log", Options{StrictPassFail: true, Logger: quiet})
	var derr *DecodeError
	if !errors.As(err, &derr) || derr.Field != 3 {
		t.Errorf("expected decode error on field 3, got %v", err)
	}
}

func TestParseBareQuote(t *testing.T) {
	log := strings.Join([]string{
		`10,R1,2,0.0,10.0,in,Cable 5" long`,
		`10,R2,2,0.0,1.0,V,"Quoted, with comma"`,
		"100,R1,,P,5.0",
		"100,R2,,P,0.5",
		"130,1,t,SN1,P,a,b,1,c,d",
	}, "\n")

	res, err := Parse(strings.NewReader(log), "quote.log", Options{Logger: quiet})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Configs) != 2 {
		t.Fatalf("got %d configs, expected 2", len(res.Configs))
	}
	if name := res.Configs[0].Name; name != `Cable 5" long` {
		t.Errorf("got name %q", name)
	}
	if name := res.Configs[1].Name; name != "Quoted, with comma" {
		t.Errorf("got name %q", name)
	}
}

func TestParseStrictQuotes(t *testing.T) {
	log := strings.Join([]string{
		"10,R1,2,0.0,10.0,V,Name",
		`10,R2,2,0.0,10.0,in,Cable 5" long`,
	}, "\n")

	_, err := Parse(strings.NewReader(log), "quote.log", Options{StrictQuotes: true, Logger: quiet})

	var merr *MalformedRowError
	if !errors.As(err, &merr) {
		t.Fatalf("expected *MalformedRowError, got %T: %v", err, err)
	}
	var lerr *LineError
	if !errors.As(err, &lerr) || lerr.Line != 1 {
		t.Errorf("expected line 1, got %v", err)
	}
	if !strings.Contains(err.Error(), "quote.log: line 1: malformed row") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestParseBlankLines(t *testing.T) {
	log := strings.Join([]string{
		"10,R1,2,0.0,10.0,V,Name",
		"",
		"100,R1,,P,abc",
	}, "\n")

	_, err := Parse(strings.NewReader(log), "blank.log", Options{Logger: quiet})

	var lerr *LineError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected *LineError, got %T: %v", err, err)
	}
	if lerr.Line != 2 {
		t.Errorf("error on line %d, expected 2", lerr.Line)
	}
	var derr *DecodeError
	if !errors.As(err, &derr) {
		t.Errorf("blank line was not skipped: %v", err)
	}
}
