package etslog

import "fmt"

// Layout is the shape of the report grid: RequirementCount rows by Runs
// value/result column pairs, where runs are ordered test by test and, within
// a test, site by site.
type Layout struct {
	SiteCount        int
	Runs             int
	TestCount        int
	RequirementCount int
	// Sites holds the distinct site numbers in order of first appearance.
	Sites []int
}

// TestIndex returns the 0-based test a run belongs to.
func (l Layout) TestIndex(run int) int {
	if l.SiteCount == 0 {
		return 0
	}
	return run / l.SiteCount
}

type LayoutOptions struct {
	// CheckRequirementIDs verifies that the i:th measurement of every block
	// has the requirement id of the i:th definition.
	CheckRequirementIDs bool
}

// DeriveLayout computes the report shape of res and verifies that the blocks
// fit it.
func DeriveLayout(res *Results, opts LayoutOptions) (Layout, error) {
	lay := Layout{
		Runs:             len(res.Summaries),
		RequirementCount: len(res.Configs),
	}

	seen := make(map[int]bool)
	for _, s := range res.Summaries {
		if !seen[s.SiteNumber] {
			seen[s.SiteNumber] = true
			lay.Sites = append(lay.Sites, s.SiteNumber)
		}
	}
	lay.SiteCount = len(lay.Sites)

	inconsistent := func(format string, args ...any) error {
		return &LayoutInconsistencyError{Path: res.Path, Reason: fmt.Sprintf(format, args...)}
	}

	if lay.SiteCount > 0 {
		if lay.Runs%lay.SiteCount != 0 {
			return Layout{}, inconsistent("%d summaries do not divide evenly over %d sites", lay.Runs, lay.SiteCount)
		}
		lay.TestCount = lay.Runs / lay.SiteCount
	}

	if len(res.Blocks) != lay.Runs {
		return Layout{}, inconsistent("%d measurement blocks for %d summaries", len(res.Blocks), lay.Runs)
	}
	for b, block := range res.Blocks {
		if len(block) != lay.RequirementCount {
			return Layout{}, inconsistent("block %d has %d measurements, expected %d", b, len(block), lay.RequirementCount)
		}
		if !opts.CheckRequirementIDs {
			continue
		}
		for i, m := range block {
			if want := res.Configs[i].RequirementID; m.RequirementID != want {
				return Layout{}, inconsistent("block %d measurement %d is %q, expected %q", b, i, m.RequirementID, want)
			}
		}
	}

	return lay, nil
}
