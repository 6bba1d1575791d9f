package config

import (
	"strings"

	"github.com/iliyamo/rental-analytics/internal/analysis"
	"github.com/iliyamo/rental-analytics/internal/model"
)

// LoadTableMap maps every entity to its source table. TABLE_<ENTITY>
// overrides the default, which is the entity name itself
// (TABLE_FILM_CATEGORY=film_category).
func LoadTableMap() map[model.Entity]string {
	m := make(map[model.Entity]string, len(model.Entities))
	for _, e := range model.Entities {
		m[e] = envStr("TABLE_"+strings.ToUpper(string(e)), string(e))
	}
	return m
}

// LoadAnalysisConfig reads the analysis parameters. Unset or non-positive
// values fall back to analysis.DefaultConfig.
func LoadAnalysisConfig() analysis.Config {
	d := analysis.DefaultConfig()
	return analysis.Config{
		TopActors:        envInt("ANALYSIS_TOP_ACTORS", d.TopActors),
		ChildrenCategory: envStr("ANALYSIS_CHILDREN_CATEGORY", d.ChildrenCategory),
		ChildrenTop:      envInt("ANALYSIS_CHILDREN_TOP", d.ChildrenTop),
		CityPrefix:       envStr("ANALYSIS_CITY_PREFIX", d.CityPrefix),
		CitySubstring:    envStr("ANALYSIS_CITY_SUBSTRING", d.CitySubstring),
		Parallelism:      envInt("ANALYSIS_PARALLELISM", d.Parallelism),
	}
}
