package sqlutil

import (
	"database/sql"
	"math"
	"strings"
	"testing"

	"go-co2-emissions-dashboard/internal/emissions"
)

func TestValidTable(t *testing.T) {
	for _, ok := range []string{"emissions", " co2_by_year ", "_t1"} {
		if _, err := ValidTable(ok); err != nil {
			t.Errorf("ValidTable(%q): %v", ok, err)
		}
	}
	for _, bad := range []string{"", "1table", "a-b", "emissions;drop", strings.Repeat("x", 65)} {
		if _, err := ValidTable(bad); err == nil {
			t.Errorf("ValidTable(%q) should fail", bad)
		}
	}
}

func TestArgsMapsMissingToNull(t *testing.T) {
	args := Args(emissions.Record{Country: "Chad", Year: 2000, Total: 1.5, Coal: math.NaN(), Other: math.Inf(1)})
	if len(args) != len(emissions.Columns) {
		t.Fatalf("expected %d args, got %d", len(emissions.Columns), len(args))
	}
	if v := args[3].(sql.NullFloat64); !v.Valid || v.Float64 != 1.5 {
		t.Errorf("total arg = %+v", v)
	}
	if v := args[4].(sql.NullFloat64); v.Valid {
		t.Errorf("NaN coal should be NULL, got %+v", v)
	}
	if v := args[9].(sql.NullFloat64); v.Valid {
		t.Errorf("Inf other should be NULL, got %+v", v)
	}
}

func TestSelectEmissionsUsesTable(t *testing.T) {
	if q := SelectEmissions("co2"); !strings.Contains(q, "FROM co2") {
		t.Errorf("query does not reference table: %s", q)
	}
}
