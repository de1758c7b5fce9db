package pattern

import jsoniter "github.com/json-iterator/go"

// distDump is Dist's JSON-facing shape: Tag rendered as its string
// name rather than the bare int, so a dump reads the same as the
// DistXxx() constructor that produced it.
type distDump struct {
	Tag string `json:"tag"`
	K   uint64 `json:"k,omitempty"`
}

type patternDump struct {
	Extents []uint64   `json:"extents"`
	Dist    []distDump `json:"dist"`
	Team    []uint64   `json:"team"`
	NUnits  uint64     `json:"nunits"`
}

// DumpJSON renders the pattern's shape for debug/CLI inspection
// (cmd/dashctl's --json flag). It carries no element data - only the
// extents/dist/team-grid that fully determine the bijection.
func (p *Pattern) DumpJSON() (string, error) {
	d := patternDump{
		Extents: p.extents,
		Team:    p.team,
		NUnits:  p.nunits,
		Dist:    make([]distDump, len(p.dist)),
	}
	for i, ds := range p.dist {
		d.Dist[i] = distDump{Tag: ds.Tag.String(), K: ds.K}
	}
	b, err := jsoniter.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
