package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/scrapekit/go-scrape-reviews/models"
	"github.com/scrapekit/go-scrape-reviews/plugin"
)

// entriesFile is the JSON shape of the entries file:
// {"orgs": {"Some Company": "https://..."}}.
type entriesFile struct {
	Orgs map[string]string `json:"orgs"`
}

// LoadEntries reads the entries file and validates every name and URL
// against the plug-in's patterns before any browsing starts. Entries are
// returned sorted by name so runs are deterministic.
func LoadEntries(path string, v plugin.Validators) ([]models.EntryTarget, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read entries file: %w", err)
	}

	var ef entriesFile
	if err := json.Unmarshal(data, &ef); err != nil {
		return nil, fmt.Errorf("parse entries file %s: %w", path, err)
	}
	if ef.Orgs == nil {
		return nil, fmt.Errorf("entries file %s is missing the %q key", path, "orgs")
	}
	if len(ef.Orgs) == 0 {
		return nil, fmt.Errorf("entries file %s has no entries", path)
	}

	names := make([]string, 0, len(ef.Orgs))
	for name := range ef.Orgs {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]models.EntryTarget, 0, len(names))
	for _, name := range names {
		url := ef.Orgs[name]
		if pat := v.NamePattern(); pat != nil && !pat.MatchString(name) {
			return nil, fmt.Errorf("entries file contains invalid name %q", name)
		}
		if pat := v.URLPattern(); pat != nil && !pat.MatchString(url) {
			return nil, fmt.Errorf("entries file contains invalid URL for %q: %s", name, url)
		}
		entries = append(entries, models.EntryTarget{Name: name, URL: url})
	}
	return entries, nil
}
