// ABOUTME: Extracts ```duckbake command blocks from model output
// ABOUTME: Malformed blocks are dropped silently but still removed from the display text
package core

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/harper/querychat/internal/models"
)

// CommandFenceTag is the language tag that marks a command block
const CommandFenceTag = "duckbake"

var (
	// The tag must end at whitespace or the opening brace, so ```duckbakery stays prose.
	commandBlockPattern = regexp.MustCompile("(?is)```" + CommandFenceTag + "([\\s{].*?)```")
	openFencePattern    = regexp.MustCompile("(?is)```" + CommandFenceTag + "(?:[\\s{].*)?$")
	excessNewlines      = regexp.MustCompile(`\n{3,}`)
)

// ParseResult is the outcome of ExtractCommands
type ParseResult struct {
	Blocks    []models.CommandBlock
	CleanText string
}

// rawCommand mirrors the JSON body of a block. Fields are loosely typed
// because model output is not trusted to follow the schema.
type rawCommand struct {
	SQL  any `json:"sql"`
	Viz  any `json:"viz"`
	XKey any `json:"xKey"`
	YKey any `json:"yKey"`
}

// ExtractCommands returns every valid command block in text order and the
// text with all command fences removed. It is pure and idempotent: running it
// again on CleanText yields no blocks and the same text.
func ExtractCommands(text string) ParseResult {
	blocks := []models.CommandBlock{}
	for _, m := range commandBlockPattern.FindAllStringSubmatch(text, -1) {
		if block, ok := parseCommandBody(m[1]); ok {
			blocks = append(blocks, block)
		}
	}

	// Removing one block can join two fragments into a new fence. Those were
	// never blocks in the model output, so they are stripped but not parsed.
	clean := commandBlockPattern.ReplaceAllString(text, "")
	for commandBlockPattern.MatchString(clean) {
		clean = commandBlockPattern.ReplaceAllString(clean, "")
	}

	// An unterminated fence can never become a block; hide it from display.
	clean = openFencePattern.ReplaceAllString(clean, "")

	clean = excessNewlines.ReplaceAllString(clean, "\n\n")
	clean = strings.TrimSpace(clean)

	return ParseResult{Blocks: blocks, CleanText: clean}
}

func parseCommandBody(body string) (models.CommandBlock, bool) {
	var raw rawCommand
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &raw); err != nil {
		return models.CommandBlock{}, false
	}

	sql, ok := raw.SQL.(string)
	if !ok || strings.TrimSpace(sql) == "" {
		return models.CommandBlock{}, false
	}

	viz, _ := raw.Viz.(string)
	xKey, _ := raw.XKey.(string)
	yKey, _ := raw.YKey.(string)

	return models.CommandBlock{
		SQL:     sql,
		VizType: models.ParseVizType(viz),
		XKey:    xKey,
		YKey:    yKey,
	}, true
}

// StripCommands returns only the display text of a message
func StripCommands(text string) string {
	return ExtractCommands(text).CleanText
}
