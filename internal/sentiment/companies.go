package sentiment

import (
	_ "embed"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed companies.yaml
var companiesYAML []byte

var companyNames = loadCompanyNames()

func loadCompanyNames() map[string]string {
	var names map[string]string
	if err := yaml.Unmarshal(companiesYAML, &names); err != nil {
		panic("sentiment: malformed companies.yaml: " + err.Error())
	}
	return names
}

// canonicalName returns the display name a news query should use for
// symbol, falling back to the bare ticker (suffixes stripped) when the
// symbol isn't in the mapping table.
func canonicalName(symbol string) string {
	ticker := strings.TrimSuffix(strings.TrimSuffix(symbol, ".NS"), ".BO")
	if name, ok := companyNames[ticker]; ok {
		return name
	}
	return ticker
}
