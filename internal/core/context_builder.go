// ABOUTME: Builds the database and document context handed to the model
// ABOUTME: Deterministic for identical inputs; prefers semantic hits over sample rows
package core

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/harper/querychat/internal/models"
)

// BuildContext renders schema, row hits and document hits into one text blob
func BuildContext(schema *models.ProjectContext, dataHits models.TableHits, docHits []models.DocumentHit) string {
	var sections []string

	seen := make(map[string]bool)
	if schema != nil {
		for _, table := range schema.Tables {
			seen[table.Name] = true
			sections = append(sections, formatTable(table, dataHits[table.Name]))
		}
	}

	// Hits for tables the schema did not describe still carry signal.
	var orphans []string
	for name, hits := range dataHits {
		if !seen[name] && len(hits) > 0 {
			orphans = append(orphans, name)
		}
	}
	sort.Strings(orphans)
	for _, name := range orphans {
		var sb strings.Builder
		fmt.Fprintf(&sb, "Table: %s\n", name)
		formatRowHits(&sb, dataHits[name])
		sections = append(sections, strings.TrimRight(sb.String(), "\n"))
	}

	if len(docHits) > 0 {
		sections = append(sections, formatDocumentHits(docHits))
	}

	if len(sections) == 0 {
		return models.NoContextMessage
	}
	return strings.Join(sections, "\n\n")
}

func formatTable(table models.TableContext, hits []models.RowHit) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Table: %s (%d rows)\n", table.Name, table.RowCount)
	sb.WriteString("Columns:\n")
	for _, col := range table.Columns {
		fmt.Fprintf(&sb, "  - %s %s", col.Name, col.DataType)
		if !col.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if col.IsPrimaryKey {
			sb.WriteString(" PRIMARY KEY")
		}
		sb.WriteString("\n")
	}

	if len(hits) > 0 {
		formatRowHits(&sb, hits)
	} else if len(table.SampleRows) > 0 {
		sb.WriteString("Sample rows:\n")
		for _, row := range table.SampleRows {
			data, err := json.Marshal(row)
			if err != nil {
				continue
			}
			sb.WriteString("  ")
			sb.Write(data)
			sb.WriteString("\n")
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

func formatRowHits(sb *strings.Builder, hits []models.RowHit) {
	sb.WriteString("Relevant rows (semantic search):\n")
	for _, hit := range hits {
		fmt.Fprintf(sb, "  - [similarity %.3f] %s\n", hit.Similarity, hit.Content)
	}
}

func formatDocumentHits(hits []models.DocumentHit) string {
	var sb strings.Builder
	sb.WriteString("RELEVANT DOCUMENT EXCERPTS:\n")

	var order []string
	grouped := make(map[string][]models.DocumentHit)
	for _, hit := range hits {
		if _, ok := grouped[hit.DocumentName]; !ok {
			order = append(order, hit.DocumentName)
		}
		grouped[hit.DocumentName] = append(grouped[hit.DocumentName], hit)
	}

	for i, name := range order {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "From %q:\n", name)
		for _, hit := range grouped[name] {
			fmt.Fprintf(&sb, "  [%.0f%% relevant] %s\n", hit.Similarity*100, strings.TrimSpace(hit.Content))
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

// ContextTableNames lists the tables a context was built from, for message metadata
func ContextTableNames(schema *models.ProjectContext) []string {
	if schema == nil {
		return nil
	}
	names := make([]string, 0, len(schema.Tables))
	for _, t := range schema.Tables {
		names = append(names, t.Name)
	}
	return names
}
