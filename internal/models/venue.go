package models

import "strings"

// Venue is a monitored place with its channel identifiers.
type Venue struct {
	ID       string `json:"id" yaml:"id" toml:"id"`
	Name     string `json:"name" yaml:"name" toml:"name"`
	City     string `json:"city" yaml:"city" toml:"city"`
	Category string `json:"category" yaml:"category" toml:"category"`
	Website  string `json:"website,omitempty" yaml:"website" toml:"website"`
	ChannelA string `json:"channel_a,omitempty" yaml:"channel_a" toml:"channel_a"`
	ChannelB string `json:"channel_b,omitempty" yaml:"channel_b" toml:"channel_b"`
}

// Handle returns the venue identifier for the given channel, or "" when the
// venue has no presence there.
func (v Venue) Handle(channel SourceChannel) string {
	switch channel {
	case SourceWebsite:
		return v.Website
	case SourceChannelA:
		return v.ChannelA
	case SourceChannelB:
		return v.ChannelB
	}
	return ""
}

// Validate checks the fields every venue must carry.
func (v Venue) Validate() error {
	if strings.TrimSpace(v.ID) == "" {
		return ErrInvalidVenue("missing id")
	}
	if strings.TrimSpace(v.Name) == "" {
		return ErrInvalidVenue("venue " + v.ID + ": missing name")
	}
	if strings.TrimSpace(v.City) == "" {
		return ErrInvalidVenue("venue " + v.ID + ": missing city")
	}
	return nil
}
