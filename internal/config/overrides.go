package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/studyforge/studysync/internal/models"
)

// Overrides is the optional YAML configuration file. It can adjust the
// sync engine settings and per-domain collection caps without
// restarting the daemon; the file is reloaded live by Watcher.
type Overrides struct {
	Sync    *models.SyncConfig        `yaml:"sync"`
	Domains map[string]DomainOverride `yaml:"domains"`
}

// DomainOverride adjusts one domain's settings.
type DomainOverride struct {
	// MaxRecords caps the domain collection; oldest records beyond
	// the cap are evicted during merge. 0 keeps the built-in default.
	MaxRecords int `yaml:"max_records"`
}

// LoadOverrides parses the overrides file. A missing path returns an
// empty set of overrides, not an error; an invalid file is rejected so
// the caller keeps the previous valid configuration.
func LoadOverrides(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Overrides{}, nil
		}

		return nil, fmt.Errorf("reading overrides file: %w", err)
	}

	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parsing overrides file: %w", err)
	}

	if o.Sync != nil {
		if err := o.Sync.Validate(); err != nil {
			return nil, fmt.Errorf("overrides file: %w", err)
		}
	}

	for name, d := range o.Domains {
		if d.MaxRecords < 0 {
			return nil, fmt.Errorf("overrides file: domain %s: max_records must not be negative", name)
		}
	}

	return &o, nil
}

// MaxRecords returns the cap override for a domain, or fallback when
// none is set.
func (o *Overrides) MaxRecords(domain string, fallback int) int {
	if d, ok := o.Domains[domain]; ok && d.MaxRecords > 0 {
		return d.MaxRecords
	}

	return fallback
}
