package fermentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupSchema(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "empty selects default", input: "", want: "minimal"},
		{name: "case and space insensitive", input: " Extended ", want: "extended"},
		{name: "core", input: "core", want: "core"},
		{name: "unknown", input: "full", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := LookupSchema(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidOptions)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Name)
		})
	}
}

func TestNormalize_HeaderCanonicalization(t *testing.T) {
	raw := RawTable{
		Columns: []string{" Date", "LOT ", "Temp", "BRIX", "pH", "Brix "},
		Rows: []RawRow{
			{" Date": "2024-09-01", "LOT ": "L1", "Temp": "20", "BRIX": "22.5", "pH": "3.4", "Brix ": "99"},
		},
	}

	table := Normalize(raw)

	assert.Equal(t, []string{"date", "lot", "temp", "brix", "ph"}, table.Columns)
	assert.Equal(t, []string{"Brix "}, table.Collisions)
	assert.Equal(t, "22.5", table.Rows[0][ColBrix])
	assert.Equal(t, "L1", table.Rows[0][ColLot])
	assert.NoError(t, SchemaMinimal.Check(table.Present))
}

func TestNormalize_RowsWithoutHeader(t *testing.T) {
	raw := RawTable{Rows: []RawRow{
		{"date": "2024-09-01", "lot": "L1", "temp": 20.0, "brix": 22.0, "ph": 3.4, "notes": "topped"},
		{"Date": "2024-09-02", "lot": "L1", "temp": 21.0, "brix": 20.0, "ph": 3.4},
	}}

	table := Normalize(raw)

	assert.True(t, table.HasColumn(ColDate))
	assert.True(t, table.HasColumn(ColPH))
	assert.False(t, table.HasColumn(ColNotes), "notes only appears in one row")
	assert.Equal(t, "2024-09-02", table.Rows[1][ColDate])
	assert.Equal(t, "topped", table.Rows[0][ColNotes])
}

func TestSchemaCheck_ReportsEveryMissingColumn(t *testing.T) {
	tests := []struct {
		name    string
		schema  Schema
		columns []string
		missing []string
	}{
		{
			name:    "minimal missing ph and brix",
			schema:  SchemaMinimal,
			columns: []string{"Date", "Lot", "Temp"},
			missing: []string{"brix", "ph"},
		},
		{
			name:    "timed requires time",
			schema:  SchemaTimed,
			columns: []string{"date", "lot", "temp", "brix", "ph"},
			missing: []string{"time"},
		},
		{
			name:    "core does not require ph",
			schema:  SchemaCore,
			columns: []string{"date", "lot", "temp", "brix"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeAndCheck(RawTable{Columns: tt.columns}, tt.schema)
			if tt.missing == nil {
				assert.NoError(t, err)
				return
			}
			var schemaErr *SchemaError
			require.ErrorAs(t, err, &schemaErr)
			assert.Equal(t, tt.missing, schemaErr.Missing)
			assert.Equal(t, tt.schema.Name, schemaErr.Schema)
		})
	}
}
