// ABOUTME: Command blocks embedded in model output and their visualization results
// ABOUTME: Results are never persisted; they are rebuilt by re-running the block SQL
package models

// VizType is the visualization hint carried by a command block
type VizType string

const (
	VizTable VizType = "table"
	VizBar   VizType = "bar"
	VizLine  VizType = "line"
	VizPie   VizType = "pie"
)

// ParseVizType maps a hint to a known VizType, defaulting to table
func ParseVizType(s string) VizType {
	switch VizType(s) {
	case VizTable, VizBar, VizLine, VizPie:
		return VizType(s)
	default:
		return VizTable
	}
}

// CommandBlock is one query extracted from a fenced block
type CommandBlock struct {
	SQL     string  `json:"sql"`
	VizType VizType `json:"viz"`
	XKey    string  `json:"xKey,omitempty"`
	YKey    string  `json:"yKey,omitempty"`
}

// VizConfig describes how a result should be drawn
type VizConfig struct {
	Type VizType `json:"type"`
	XKey string  `json:"xKey,omitempty"`
	YKey string  `json:"yKey,omitempty"`
}

// VisualizationResult is the outcome of executing one command block.
// Exactly one of Result or Error is set.
type VisualizationResult struct {
	Config VizConfig    `json:"config"`
	SQL    string       `json:"sql"`
	Result *QueryResult `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// Config returns the visualization config for the block
func (b CommandBlock) Config() VizConfig {
	return VizConfig{Type: b.VizType, XKey: b.XKey, YKey: b.YKey}
}
