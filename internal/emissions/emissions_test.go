package emissions

import (
	"bytes"
	"encoding/csv"
	"math"
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureCSV = `Country,ISO 3166-1 alpha-3,Year,Total,Coal,Oil,Gas,Cement,Flaring,Other,Per Capita
China,CHN,1995,3000,2200,500,50,200,1,,2.5
USA,USA,1995,5400,2000,2300,1100,40,10,,20.3
India,IND,1995,800,550,200,30,20,,,0.9
Global,WLD,1995,23000,9000,8000,4000,1000,300,,4.1
China,CHN,1996,3100,2250,520,55,210,2,,2.6
USA,USA,1996,5600,2100,2350,1150,42,11,,20.6
India,IND,1996,850,580,210,35,,1,,NA
`

func loadFixture(t *testing.T, opts ...LoadOption) *Table {
	t.Helper()
	tbl, err := ReadCSV(strings.NewReader(fixtureCSV), opts...)
	require.NoError(t, err)
	return tbl
}

func TestReadCSV_NormalizesHeadersAndExcludes(t *testing.T) {
	tbl := loadFixture(t, WithExcluded(DefaultExcluded))

	assert.Equal(t, 6, tbl.Len())
	assert.Equal(t, []int{1995, 1996}, tbl.Years())
	assert.Equal(t, []string{"China", "India", "USA"}, tbl.Countries())

	first, last := tbl.YearRange()
	assert.Equal(t, 1995, first)
	assert.Equal(t, 1996, last)

	rows := tbl.ForYear(1996)
	require.Len(t, rows, 3)
	assert.Equal(t, "China", rows[0].Country)
	assert.Equal(t, "CHN", rows[0].ISOCode)
	assert.True(t, math.IsNaN(rows[1].PerCapita), "NA should load as missing")
	assert.True(t, math.IsNaN(rows[1].Cement), "empty cell should load as missing")
}

func TestReadCSV_KeepsAggregatesWithoutExclusion(t *testing.T) {
	tbl := loadFixture(t)
	assert.Len(t, tbl.ForYear(1995), 4)
}

func TestReadCSV_MissingColumns(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("country,year,total\nChina,1996,1\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumns)
	assert.Contains(t, err.Error(), "per_capita")
}

func TestReadCSV_InvalidYear(t *testing.T) {
	csv := "country,year,total,coal,oil,gas,cement,flaring,per_capita\nChina,199x,1,1,1,1,1,1,1\n"
	_, err := ReadCSV(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestNormalizeHeader(t *testing.T) {
	tests := map[string]string{
		"Country":            "country",
		" Per Capita ":       "per_capita",
		"ISO 3166-1 alpha-3": "iso_code",
		"per-capita":         "per_capita",
		"Flaring":            "flaring",
		"\ufeffCountry":      "country",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeHeader(in), in)
	}
}

func TestReadCSV_ByteOrderMark(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("\ufeff"+fixtureCSV), WithExcluded(DefaultExcluded))
	require.NoError(t, err)
	assert.Equal(t, []string{"China", "India", "USA"}, tbl.Countries())
}

func TestUpTo(t *testing.T) {
	tbl := loadFixture(t, WithExcluded(DefaultExcluded))
	assert.Len(t, tbl.UpTo(1995), 3)
	assert.Len(t, tbl.UpTo(1996), 6)
	assert.Empty(t, tbl.UpTo(1980))
}

func TestTopEmitters(t *testing.T) {
	tbl := loadFixture(t, WithExcluded(DefaultExcluded))

	top := TopEmitters(tbl.ForYear(1996), 2)
	require.Len(t, top, 2)
	assert.Equal(t, "USA", top[0].Country)
	assert.Equal(t, "China", top[1].Country)

	all := TopEmitters(tbl.ForYear(1996), 10)
	assert.Len(t, all, 3, "fewer countries than n yields all of them")

	assert.Nil(t, TopEmitters(tbl.ForYear(1996), 0))
}

func TestTopEmitters_TieBreaksByName(t *testing.T) {
	rows := []Record{
		{Country: "B", Year: 2000, Total: 10},
		{Country: "A", Year: 2000, Total: 10},
		{Country: "C", Year: 2000, Total: math.NaN()},
	}
	top := TopEmitters(rows, 3)
	require.Len(t, top, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{top[0].Country, top[1].Country, top[2].Country})
	assert.Equal(t, 0.0, top[2].Total)
}

func TestFuelValues(t *testing.T) {
	tbl := loadFixture(t, WithExcluded(DefaultExcluded))
	rows := tbl.ForYear(1996)

	got := FuelValues(rows, "USA", FossilFuels)
	assert.Equal(t, []float64{2100, 2350, 1150}, got)

	none := FuelValues(rows, "Atlantis", FossilFuels)
	for _, v := range none {
		assert.True(t, math.IsNaN(v))
	}
}

func TestSumByYear(t *testing.T) {
	tbl := loadFixture(t, WithExcluded(DefaultExcluded))

	coal := SumByYear(tbl.UpTo(1996), Coal)
	require.Len(t, coal, 2)
	assert.Equal(t, YearValue{Year: 1995, Value: 4750}, coal[0])
	assert.Equal(t, YearValue{Year: 1996, Value: 4930}, coal[1])

	cement := SumByYear(tbl.UpTo(1996), Cement)
	assert.Equal(t, 252.0, cement[1].Value, "missing cement counts as zero")
}

func TestYearStats(t *testing.T) {
	tbl := loadFixture(t, WithExcluded(DefaultExcluded))

	st := YearStats(tbl.ForYear(1995), MetricPerCapita)
	assert.Equal(t, 3, st.Count)
	assert.Equal(t, 0, st.Missing)
	require.NotNil(t, st.Median)
	assert.Equal(t, 2.5, *st.Median)
	assert.Equal(t, "India", st.MinCountry)
	assert.Equal(t, "USA", st.MaxCountry)
	assert.InDelta(t, 23.7, st.Sum, 1e-9)

	st96 := YearStats(tbl.ForYear(1996), MetricPerCapita)
	assert.Equal(t, 2, st96.Count)
	assert.Equal(t, 1, st96.Missing)

	empty := YearStats(nil, MetricTotal)
	assert.Equal(t, 0, empty.Count)
	assert.Nil(t, empty.Mean)
}

func TestMetricRange(t *testing.T) {
	tbl := loadFixture(t, WithExcluded(DefaultExcluded))
	lo, hi, ok := MetricRange(tbl.ForYear(1996), MetricTotal)
	require.True(t, ok)
	assert.Equal(t, 850.0, lo)
	assert.Equal(t, 5600.0, hi)

	_, _, ok = MetricRange(nil, MetricTotal)
	assert.False(t, ok)
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("")
	require.NoError(t, err)
	assert.Equal(t, MetricTotal, m)

	m, err = ParseMetric(" Per_Capita ")
	require.NoError(t, err)
	assert.Equal(t, MetricPerCapita, m)

	_, err = ParseMetric("gdp")
	assert.ErrorIs(t, err, ErrInvalidMetric)
}

func TestFrameFilter(t *testing.T) {
	tbl := loadFixture(t, WithExcluded(DefaultExcluded))
	df := tbl.Frame().Filter(dataframe.F{Colname: "year", Comparator: series.Eq, Comparando: 1995})
	require.NoError(t, df.Err)
	assert.Equal(t, 3, df.Nrow())
}

func TestFuelTitle(t *testing.T) {
	assert.Equal(t, "Flaring", Flaring.Title())
	assert.Equal(t, "Per Capita", MetricPerCapita.Label())
}

func TestExclude(t *testing.T) {
	tbl := loadFixture(t)
	kept := Exclude(tbl.Records(), []string{" global "})
	for _, r := range kept {
		assert.NotEqual(t, "Global", r.Country)
	}
	assert.Less(t, len(kept), tbl.Len())
	assert.Len(t, Exclude(tbl.Records(), nil), tbl.Len())
}

func TestTableWriteCSV(t *testing.T) {
	tbl := loadFixture(t, WithExcluded(DefaultExcluded))
	var buf bytes.Buffer
	require.NoError(t, tbl.WriteCSV(&buf, 1995))

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, []int{1995}, back.Years())
	assert.Equal(t, len(tbl.ForYear(1995)), back.Len())
}

func TestTableWriteCSV_MissingValuesAreEmpty(t *testing.T) {
	tbl := loadFixture(t, WithExcluded(DefaultExcluded))
	var buf bytes.Buffer
	require.NoError(t, tbl.WriteCSV(&buf, 1996))
	out := buf.String()

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, Columns, rows[0])

	byCountry := map[string]map[string]string{}
	for _, row := range rows[1:] {
		cells := map[string]string{}
		for i, name := range rows[0] {
			cells[name] = row[i]
		}
		byCountry[row[0]] = cells
	}

	india := byCountry["India"]
	require.NotNil(t, india)
	assert.Equal(t, "", india["cement"])
	assert.Equal(t, "", india["per_capita"])
	assert.Equal(t, "850", india["total"])
	assert.Equal(t, "2.6", byCountry["China"]["per_capita"])
	assert.NotContains(t, out, "NaN")
}
