// Package venues holds the fixed set of monitored venues.
package venues

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/venuewatch/venuewatch/internal/models"
)

// Registry is an ordered, read-only collection of venues.
type Registry struct {
	venues []models.Venue
	byID   map[string]int
}

// File is the on-disk layout of a venue list, shared by YAML and TOML files.
type File struct {
	Venues []models.Venue `yaml:"venues" toml:"venues"`
}

// New validates the venues and builds a registry preserving their order.
func New(venues []models.Venue) (*Registry, error) {
	r := &Registry{
		venues: make([]models.Venue, 0, len(venues)),
		byID:   make(map[string]int, len(venues)),
	}
	for _, v := range venues {
		if err := v.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byID[v.ID]; dup {
			return nil, models.ErrInvalidVenue("duplicate id " + v.ID)
		}
		r.byID[v.ID] = len(r.venues)
		r.venues = append(r.venues, v)
	}
	return r, nil
}

// LoadFile reads a venue list from a .yaml, .yml or .toml file.
func LoadFile(path string) (*Registry, error) {
	var f File

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read venues file: %w", err)
		}
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse venues yaml: %w", err)
		}
	case ".toml":
		if _, err := toml.DecodeFile(path, &f); err != nil {
			return nil, fmt.Errorf("parse venues toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported venues file extension %q", filepath.Ext(path))
	}

	if len(f.Venues) == 0 {
		return nil, fmt.Errorf("venues file %s lists no venues", path)
	}
	return New(f.Venues)
}

// All returns a copy of the venues in registry order.
func (r *Registry) All() []models.Venue {
	out := make([]models.Venue, len(r.venues))
	copy(out, r.venues)
	return out
}

// Len returns the number of monitored venues.
func (r *Registry) Len() int {
	return len(r.venues)
}

// Get returns the venue with the given ID.
func (r *Registry) Get(id string) (models.Venue, bool) {
	i, ok := r.byID[id]
	if !ok {
		return models.Venue{}, false
	}
	return r.venues[i], true
}

// SearchByName returns venues whose name contains name, ignoring case.
func (r *Registry) SearchByName(name string) []models.Venue {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil
	}

	var out []models.Venue
	for _, v := range r.venues {
		if strings.Contains(strings.ToLower(v.Name), needle) {
			out = append(out, v)
		}
	}
	return out
}

// Cities returns the distinct cities in first-seen order.
func (r *Registry) Cities() []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range r.venues {
		if !seen[v.City] {
			seen[v.City] = true
			out = append(out, v.City)
		}
	}
	return out
}
