package team

import jsoniter "github.com/json-iterator/go"

// DumpJSON renders the team's grid factorization for debug/CLI
// inspection (cmd/dashctl's --json flag), the same role the teacher's
// jsoniter use plays for its own wire-facing debug dumps.
func (s Spec) DumpJSON() (string, error) {
	b, err := jsoniter.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
