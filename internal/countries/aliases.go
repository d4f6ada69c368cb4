// Package countries maps dataset country names to the region names used by the
// ECharts world map geometry.
package countries

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var builtin = map[string]string{
	"USA":                              "United States",
	"United States of America":         "United States",
	"Russian Federation":               "Russia",
	"Democratic Republic of Congo":     "Dem. Rep. Congo",
	"Democratic Republic of the Congo": "Dem. Rep. Congo",
	"Congo":                            "Congo",
	"Central African Republic":         "Central African Rep.",
	"South Sudan":                      "S. Sudan",
	"South Korea":                      "Korea",
	"North Korea":                      "Dem. Rep. Korea",
	"Czechia":                          "Czech Rep.",
	"Czech Republic":                   "Czech Rep.",
	"Bosnia and Herzegovina":           "Bosnia and Herz.",
	"Dominican Republic":               "Dominican Rep.",
	"Equatorial Guinea":                "Eq. Guinea",
	"Laos":                             "Lao PDR",
	"Solomon Islands":                  "Solomon Is.",
	"Cote d'Ivoire":                    "Côte d'Ivoire",
	"North Macedonia":                  "Macedonia",
	"Eswatini":                         "Swaziland",
	"Viet Nam":                         "Vietnam",
	"Western Sahara":                   "W. Sahara",
	"Falkland Islands":                 "Falkland Is.",
	"Timor-Leste":                      "Timor-Leste",
	"Cabo Verde":                       "Cape Verde",
	"Syrian Arab Republic":             "Syria",
	"Iran (Islamic Republic of)":       "Iran",
	"Bolivia (Plurinational State of)": "Bolivia",
	"Venezuela (Bolivarian Republic of)": "Venezuela",
	"Tanzania, United Republic of":       "Tanzania",
	"United Republic of Tanzania":        "Tanzania",
	"Turkiye":                            "Turkey",
	"Türkiye":                            "Turkey",
	"Myanmar (Burma)":                    "Myanmar",
	"Brunei Darussalam":                  "Brunei",
	"Kyrgyz Republic":                    "Kyrgyzstan",
	"Moldova, Republic of":               "Moldova",
	"Republic of Moldova":                "Moldova",
	"Palestine":                          "Palestine",
	"State of Palestine":                 "Palestine",
}

// Aliases resolves dataset names to map region names.
type Aliases struct {
	names map[string]string
}

type aliasFile struct {
	Aliases map[string]string `yaml:"aliases"`
}

// Default returns the built-in alias table.
func Default() *Aliases {
	a := &Aliases{names: make(map[string]string, len(builtin))}
	for k, v := range builtin {
		a.names[k] = v
	}
	return a
}

// Load returns the built-in table extended by the YAML file at path. An empty
// path returns the built-in table.
func Load(path string) (*Aliases, error) {
	a := Default()
	path = strings.TrimSpace(path)
	if path == "" {
		return a, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read country aliases: %w", err)
	}
	if err := a.Merge(b); err != nil {
		return nil, fmt.Errorf("parse country aliases %s: %w", path, err)
	}
	return a, nil
}

// Merge applies a YAML document of the form:
//
//	aliases:
//	  USA: United States
func (a *Aliases) Merge(doc []byte) error {
	var f aliasFile
	if err := yaml.Unmarshal(doc, &f); err != nil {
		return err
	}
	for k, v := range f.Aliases {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		a.names[k] = v
	}
	return nil
}

// Resolve returns the map region name for a dataset country, or name unchanged.
func (a *Aliases) Resolve(name string) string {
	if a == nil {
		return name
	}
	if v, ok := a.names[name]; ok {
		return v
	}
	return name
}

// Len returns the number of aliases.
func (a *Aliases) Len() int {
	if a == nil {
		return 0
	}
	return len(a.names)
}
