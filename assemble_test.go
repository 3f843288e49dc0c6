package etslog

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAssembler(t *testing.T) {
	m := func(id string) Measurement { return Measurement{RequirementID: id, Passed: true} }
	s := func(site int) TestSummary { return TestSummary{SiteNumber: site} }

	cases := []struct {
		name    string
		records []Record
		configs int
		blocks  [][]Measurement
		sums    int
	}{
		{
			name:    "measurement before any config",
			records: []Record{m("A"), m("B"), s(1)},
			blocks:  [][]Measurement{{m("A"), m("B")}},
			sums:    1,
		},
		{
			name: "summary closes block",
			records: []Record{
				ConfigDefinition{RequirementID: "A"},
				m("A"), s(1),
				m("A"), s(2),
			},
			configs: 1,
			blocks:  [][]Measurement{{m("A")}, {m("A")}},
			sums:    2,
		},
		{
			name: "other rows do not split a block",
			records: []Record{
				m("A"),
				UnclassifiedRow{RowTag: TagWarning},
				m("B"),
				s(1),
			},
			blocks: [][]Measurement{{m("A"), m("B")}},
			sums:   1,
		},
		{
			name: "config between blocks",
			records: []Record{
				m("A"), s(1),
				ConfigDefinition{RequirementID: "late"},
				m("A"), s(1),
			},
			configs: 1,
			blocks:  [][]Measurement{{m("A")}, {m("A")}},
			sums:    2,
		},
		{
			name:    "summary without measurements",
			records: []Record{s(1), s(2)},
			sums:    2,
		},
		{
			name:    "trailing open block",
			records: []Record{m("A"), s(1), m("A")},
			blocks:  [][]Measurement{{m("A")}, {m("A")}},
			sums:    1,
		},
	}

	for _, c := range cases {
		asm := NewAssembler("x.log")
		for _, rec := range c.records {
			asm.Add(rec)
		}
		res := asm.Results()

		if len(res.Configs) != c.configs {
			t.Errorf("%s: %d configs, expected %d", c.name, len(res.Configs), c.configs)
		}
		if diff := cmp.Diff(c.blocks, res.Blocks); diff != "" {
			t.Errorf("%s: blocks (-want +got):\n%s", c.name, diff)
		}
		if len(res.Summaries) != c.sums {
			t.Errorf("%s: %d summaries, expected %d", c.name, len(res.Summaries), c.sums)
		}
		if res.Path != "x.log" {
			t.Errorf("%s: path %q", c.name, res.Path)
		}
	}
}
