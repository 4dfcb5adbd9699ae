// Package schema loads the database schema catalog: the mapping from logical
// table names to physical tables, columns, and the Korean natural-language
// aliases the resolver uses to map query terms onto identifiers.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Attribute describes one column of a table.
type Attribute struct {
	// Column is the physical column name.
	Column string `json:"column"`
	// Type is the SQL type, e.g. "bigint", "varchar(50)".
	Type string `json:"type"`
	// Aliases are Korean terms users may use for this column.
	Aliases []string `json:"aliases,omitempty"`
	// Values enumerates allowed values for categorical columns.
	Values []string `json:"values,omitempty"`
}

// Table describes one table of the catalog.
type Table struct {
	// Table is the physical table name, e.g. "tb_user".
	Table string `json:"table"`
	// Aliases are Korean terms users may use for this table.
	Aliases []string `json:"aliases,omitempty"`
	// Attributes maps logical attribute names to column descriptions.
	Attributes map[string]Attribute `json:"attributes"`
	// Relationships are free-text descriptions of links to other tables,
	// e.g. "tb_deposit via userId".
	Relationships []string `json:"relationships,omitempty"`
}

// Catalog is the full schema description artifact.
type Catalog struct {
	// Tables maps logical names ("User") to table descriptions.
	Tables map[string]Table `json:"database_schema"`
}

// Load reads a catalog from a JSON file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a catalog from JSON bytes.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse schema catalog: %w", err)
	}
	if len(c.Tables) == 0 {
		return nil, fmt.Errorf("schema catalog has no tables")
	}
	return &c, nil
}

// PhysicalTables returns the set of physical table names in the catalog.
func (c *Catalog) PhysicalTables() map[string]bool {
	set := make(map[string]bool, len(c.Tables))
	for _, t := range c.Tables {
		if t.Table != "" {
			set[strings.ToLower(t.Table)] = true
		}
	}
	return set
}

// Columns returns the physical column names of the named physical table.
func (c *Catalog) Columns(physicalTable string) []string {
	for _, t := range c.Tables {
		if strings.EqualFold(t.Table, physicalTable) {
			cols := make([]string, 0, len(t.Attributes))
			for _, attr := range t.Attributes {
				cols = append(cols, attr.Column)
			}
			sort.Strings(cols)
			return cols
		}
	}
	return nil
}

// Format renders the catalog as indented JSON for inclusion in prompts.
func (c *Catalog) Format() string {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}
