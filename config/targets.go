package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Target is one search string with its scrape priority (lower goes first).
type Target struct {
	Name     string `yaml:"name"`
	Priority int    `yaml:"priority"`
}

type targetsFile struct {
	Targets []Target `yaml:"targets"`
}

// DefaultTargets is used when no targets file exists. University cities come
// first, the rest of the GTA and Ontario after.
var DefaultTargets = []string{
	"Toronto, ON",
	"Waterloo, ON",
	"London, ON",
	"Hamilton, ON",
	"Ottawa, ON",
	"Oshawa, ON",
	"Guelph, ON",
	"Kingston, ON",
	"Mississauga, ON",
	"Brampton, ON",
	"Markham, ON",
	"Scarborough, ON",
	"North York, ON",
	"Vaughan, ON",
	"Richmond Hill, ON",
	"Oakville, ON",
	"Burlington, ON",
	"Pickering, ON",
	"Ajax, ON",
	"Whitby, ON",
	"Windsor, ON",
	"Niagara Falls, ON",
}

// LoadTargets reads the YAML targets file and returns target names in
// priority order. Entries sharing a priority keep their file order.
// A missing file yields DefaultTargets.
func LoadTargets(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return append([]string(nil), DefaultTargets...), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read targets file: %w", err)
	}
	return ParseTargets(data)
}

// ParseTargets decodes a targets document.
func ParseTargets(data []byte) ([]string, error) {
	var tf targetsFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("failed to parse targets file: %w", err)
	}

	sort.SliceStable(tf.Targets, func(i, j int) bool {
		return tf.Targets[i].Priority < tf.Targets[j].Priority
	})

	names := make([]string, 0, len(tf.Targets))
	for _, t := range tf.Targets {
		if name := strings.TrimSpace(t.Name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("targets file lists no search targets")
	}
	return names, nil
}
