package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SearchQuery is one scheduled search, as listed in QUERIES_FILE:
//
//	queries:
//	  - text: python
//	    period: 1
//	    sources: [hh.ru, trudvsem]
type SearchQuery struct {
	Text    string   `yaml:"text" validate:"required,max=50"`
	Area    string   `yaml:"area"`
	Period  int      `yaml:"period" validate:"min=1,max=30"`
	Sources []string `yaml:"sources" validate:"dive,oneof=hh.ru trudvsem"`
}

type queriesFile struct {
	Queries []SearchQuery `yaml:"queries" validate:"dive"`
}

// DefaultQueries is used when no QUERIES_FILE is configured.
func DefaultQueries() []SearchQuery {
	return []SearchQuery{{Text: "python", Period: 1}}
}

// LoadQueries reads the scheduled searches from path. An empty path yields
// DefaultQueries. A query without sources runs against every source.
func LoadQueries(path string) ([]SearchQuery, error) {
	if path == "" {
		return DefaultQueries(), nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read queries file %s: %w", path, err)
	}

	var f queriesFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse queries file %s: %w", path, err)
	}
	if len(f.Queries) == 0 {
		return nil, fmt.Errorf("queries file %s lists no queries", path)
	}
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("invalid queries file %s: %w", path, err)
	}
	return f.Queries, nil
}
