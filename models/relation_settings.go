package models

import "time"

// RelationSettings is the exclusion configuration read by the remote
// similarity service when it computes related projects.
type RelationSettings struct {
	ExcludedTags         []string   `json:"excluded_tags"`
	ExcludedTechnologies []string   `json:"excluded_technologies"`
	UpdatedAt            *time.Time `json:"updated_at,omitempty"`
	Message              string     `json:"message,omitempty"`
}

// Request returns the writable part of the settings with nil slices replaced by empty ones.
func (s RelationSettings) Request() RelationSettings {
	out := RelationSettings{
		ExcludedTags:         s.ExcludedTags,
		ExcludedTechnologies: s.ExcludedTechnologies,
	}
	if out.ExcludedTags == nil {
		out.ExcludedTags = []string{}
	}
	if out.ExcludedTechnologies == nil {
		out.ExcludedTechnologies = []string{}
	}
	return out
}
