package etslog

type assemblerState int

const (
	stateIdle assemblerState = iota
	stateInBlock
)

// Assembler groups decoded records into Results. A measurement opens a new
// block unless one is already open; a summary always closes the open block.
type Assembler struct {
	state assemblerState
	res   Results
}

func NewAssembler(path string) *Assembler {
	return &Assembler{res: Results{Path: path}}
}

func (a *Assembler) Add(rec Record) {
	switch rec := rec.(type) {
	case ConfigDefinition:
		a.res.Configs = append(a.res.Configs, rec)

	case Measurement:
		if a.state == stateInBlock {
			last := len(a.res.Blocks) - 1
			a.res.Blocks[last] = append(a.res.Blocks[last], rec)
		} else {
			a.res.Blocks = append(a.res.Blocks, []Measurement{rec})
			a.state = stateInBlock
		}

	case TestSummary:
		a.res.Summaries = append(a.res.Summaries, rec)
		a.state = stateIdle

	case UnclassifiedRow:
		a.res.Other = append(a.res.Other, rec)
	}
}

// Results returns what has been assembled so far. The Assembler must not be
// used afterwards.
func (a *Assembler) Results() *Results {
	return &a.res
}
