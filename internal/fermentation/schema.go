package fermentation

import (
	"fmt"
	"sort"
	"strings"
)

// Schema names the columns a run requires and which of them are critical.
type Schema struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Required    []string `json:"required"`
	// Numeric lists the columns summarized for this schema.
	Numeric []string `json:"numeric"`
	// RequirePH makes ph a critical field. Rows without a usable ph are dropped.
	RequirePH bool `json:"require_ph"`
}

// Schema variants.
var (
	SchemaMinimal = Schema{
		Name:        "minimal",
		Description: "date, lot, temp, brix and ph",
		Required:    []string{ColDate, ColLot, ColTemp, ColBrix, ColPH},
		Numeric:     []string{ColTemp, ColBrix, ColPH},
		RequirePH:   true,
	}
	SchemaTimed = Schema{
		Name:        "timed",
		Description: "minimal plus a separate time of day column",
		Required:    []string{ColDate, ColTime, ColLot, ColTemp, ColBrix, ColPH},
		Numeric:     []string{ColTemp, ColBrix, ColPH},
		RequirePH:   true,
	}
	SchemaExtended = Schema{
		Name:        "extended",
		Description: "timed plus va, ta, alcohol, so2, mlf and notes",
		Required: []string{ColDate, ColTime, ColLot, ColTemp, ColBrix, ColPH,
			ColVA, ColTA, ColAlcohol, ColSO2, ColMLF, ColNotes},
		Numeric:   []string{ColTemp, ColBrix, ColPH, ColVA, ColTA, ColAlcohol, ColSO2},
		RequirePH: true,
	}
	SchemaCore = Schema{
		Name:        "core",
		Description: "date, lot, temp and brix; ph optional",
		Required:    []string{ColDate, ColLot, ColTemp, ColBrix},
		Numeric:     []string{ColTemp, ColBrix, ColPH},
	}
)

// DefaultSchemaName is used when no schema is configured.
const DefaultSchemaName = "minimal"

var schemas = []Schema{SchemaMinimal, SchemaTimed, SchemaExtended, SchemaCore}

// Schemas returns every known schema variant.
func Schemas() []Schema {
	out := make([]Schema, len(schemas))
	copy(out, schemas)
	return out
}

// LookupSchema resolves a schema by name. The empty name selects the default.
func LookupSchema(name string) (Schema, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultSchemaName
	}
	for _, s := range schemas {
		if s.Name == name {
			return s, nil
		}
	}
	return Schema{}, fmt.Errorf("%w: unknown schema %q", ErrInvalidOptions, name)
}

// CriticalFields lists the fields whose absence drops a row.
func (s Schema) CriticalFields() []string {
	fields := []string{ColLot, FieldTimestamp, ColTemp, ColBrix}
	if s.RequirePH {
		fields = append(fields, ColPH)
	}
	return fields
}

// Check returns a *SchemaError naming every required column absent from present.
func (s Schema) Check(present map[string]bool) error {
	var missing []string
	for _, col := range s.Required {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Schema: s.Name, Missing: missing}
	}
	return nil
}

// NormalizeColumn trims surrounding whitespace and lower-cases a header.
func NormalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Table is a RawTable with canonical column names.
type Table struct {
	Columns []string
	Rows    []map[string]any
	// Present holds the columns available to every row.
	Present map[string]bool
	// Collisions lists raw headers ignored because an earlier header
	// normalized to the same name.
	Collisions []string
}

// HasColumn reports whether the column is available to every row.
func (t Table) HasColumn(col string) bool {
	return t.Present[col]
}

// Normalize rewrites every header to its canonical form. When two headers
// normalize to the same name the first one wins.
//
// If raw.Columns is set it is authoritative. Otherwise a column is only
// present when every row carries it.
func Normalize(raw RawTable) Table {
	t := Table{Present: map[string]bool{}}
	chosen := map[string]string{}
	reported := map[string]bool{}
	strict := len(raw.Columns) > 0

	claim := func(header string) {
		c := NormalizeColumn(header)
		if prev, ok := chosen[c]; ok {
			if strict || (prev != header && !reported[header]) {
				reported[header] = true
				t.Collisions = append(t.Collisions, header)
			}
			return
		}
		chosen[c] = header
		t.Columns = append(t.Columns, c)
	}

	if strict {
		for _, h := range raw.Columns {
			claim(h)
		}
		for _, c := range t.Columns {
			t.Present[c] = true
		}
	} else {
		counts := map[string]int{}
		for _, row := range raw.Rows {
			seen := map[string]bool{}
			for _, h := range sortedKeys(row) {
				claim(h)
				c := NormalizeColumn(h)
				if !seen[c] {
					seen[c] = true
					counts[c]++
				}
			}
		}
		for c, n := range counts {
			if len(raw.Rows) > 0 && n == len(raw.Rows) {
				t.Present[c] = true
			}
		}
	}

	t.Rows = make([]map[string]any, len(raw.Rows))
	for i, row := range raw.Rows {
		out := make(map[string]any, len(row))
		for c, h := range chosen {
			if v, ok := row[h]; ok {
				out[c] = v
			}
		}
		// Rows may spell a header differently from the one that claimed it.
		for _, h := range sortedKeys(row) {
			c := NormalizeColumn(h)
			if _, ok := out[c]; !ok {
				out[c] = row[h]
			}
		}
		t.Rows[i] = out
	}
	return t
}

// NormalizeAndCheck normalizes headers and validates them against the schema.
func NormalizeAndCheck(raw RawTable, schema Schema) (Table, error) {
	t := Normalize(raw)
	if err := schema.Check(t.Present); err != nil {
		return Table{}, err
	}
	return t, nil
}

func sortedKeys(row RawRow) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
