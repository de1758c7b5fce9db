package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Rodario/dash/pattern"
	"github.com/Rodario/dash/team"
)

var (
	patExtents string
	patDist    string
	patGrid    string
	patUnits   uint64
	patJSON    bool
)

var patternCmd = &cobra.Command{
	Use:   "pattern",
	Short: "Print the per-unit bounding box a distribution pattern produces",
	Long: `pattern builds a pattern.Pattern from --extents/--dist/--grid and
prints, for every unit 0..units-1, the rectangular window BoundingBox
reports for each dimension - the same call view.Local() makes when
narrowing a view to one unit's share.`,
	RunE: runPattern,
}

func init() {
	patternCmd.Flags().StringVar(&patExtents, "extents", "8,6", "comma-separated extent per dimension")
	patternCmd.Flags().StringVar(&patDist, "dist", "blocked,blocked", "comma-separated distribution per dimension: none|blocked|cyclic|tile:K|blockcyclic:K")
	patternCmd.Flags().StringVar(&patGrid, "grid", "", "comma-separated team grid per dimension (default: units on dim 0, 1 elsewhere)")
	patternCmd.Flags().Uint64Var(&patUnits, "units", 2, "number of units")
	patternCmd.Flags().BoolVar(&patJSON, "json", false, "dump the pattern and team grid as JSON instead of plain text")
	rootCmd.AddCommand(patternCmd)
}

func runPattern(_ *cobra.Command, _ []string) error {
	extents, err := parseUint64List(patExtents)
	if err != nil {
		return fmt.Errorf("--extents: %w", err)
	}
	dists, err := parseDistList(patDist, len(extents))
	if err != nil {
		return fmt.Errorf("--dist: %w", err)
	}
	var grid []uint64
	if patGrid != "" {
		grid, err = parseUint64List(patGrid)
		if err != nil {
			return fmt.Errorf("--grid: %w", err)
		}
	} else {
		grid = make([]uint64, len(extents))
		grid[0] = patUnits
		for d := 1; d < len(grid); d++ {
			grid[d] = 1
		}
	}

	pat, err := pattern.New(extents, dists, grid, patUnits)
	if err != nil {
		return err
	}

	if patJSON {
		patOut, err := pat.DumpJSON()
		if err != nil {
			return fmt.Errorf("dump pattern: %w", err)
		}
		specOut, err := team.Spec{Grid: grid}.DumpJSON()
		if err != nil {
			return fmt.Errorf("dump team spec: %w", err)
		}
		fmt.Printf(`{"pattern":%s,"team_spec":%s}`+"\n", patOut, specOut)
		return nil
	}

	fmt.Printf("pattern: extents=%v team-grid=%v size=%d\n", pat.Extents(), pat.TeamExtents(), pat.Size())
	for u := uint64(0); u < patUnits; u++ {
		fmt.Printf("  unit %d: local_size=%d", u, pat.LocalSize(u))
		for d := 0; d < pat.Rank(); d++ {
			off, ext := pat.BoundingBox(d, u)
			fmt.Printf(" dim%d=[%d,%d)", d, off, off+ext)
		}
		fmt.Println()
	}
	return nil
}

func parseUint64List(s string) ([]uint64, error) {
	parts := strings.Split(s, ",")
	out := make([]uint64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}

func parseDistList(s string, rank int) ([]pattern.Dist, error) {
	parts := strings.Split(s, ",")
	if len(parts) == 1 && rank > 1 {
		expanded := make([]string, rank)
		for i := range expanded {
			expanded[i] = parts[0]
		}
		parts = expanded
	}
	if len(parts) != rank {
		return nil, fmt.Errorf("expected %d entries, got %d", rank, len(parts))
	}
	out := make([]pattern.Dist, rank)
	for i, p := range parts {
		d, err := parseDist(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

func parseDist(s string) (pattern.Dist, error) {
	tag, arg, _ := strings.Cut(s, ":")
	switch strings.ToLower(tag) {
	case "none":
		return pattern.DistNone(), nil
	case "blocked":
		return pattern.DistBlocked(), nil
	case "cyclic":
		return pattern.DistCyclic(), nil
	case "tile":
		k, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return pattern.Dist{}, fmt.Errorf("tile:K requires a numeric K: %w", err)
		}
		return pattern.DistTile(k), nil
	case "blockcyclic":
		k, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return pattern.Dist{}, fmt.Errorf("blockcyclic:K requires a numeric K: %w", err)
		}
		return pattern.DistBlockCyclic(k), nil
	default:
		return pattern.Dist{}, fmt.Errorf("unknown distribution %q", s)
	}
}
