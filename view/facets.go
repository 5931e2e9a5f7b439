package view

import (
	"slices"

	"github.com/rpupo63/portfolio-dashboard-core/models"
)

// Facets are the distinct technologies and tags across a collection, used as
// filter options.
type Facets struct {
	Technologies []string `json:"technologies"`
	Tags         []string `json:"tags"`
}

// CollectFacets gathers unique values in first-seen order.
func CollectFacets(projects []models.Project) Facets {
	f := Facets{Technologies: []string{}, Tags: []string{}}
	seenTech := map[string]struct{}{}
	seenTag := map[string]struct{}{}
	for _, p := range projects {
		for _, t := range p.Technologies {
			if _, ok := seenTech[t]; !ok {
				seenTech[t] = struct{}{}
				f.Technologies = append(f.Technologies, t)
			}
		}
		for _, t := range p.Tags {
			if _, ok := seenTag[t]; !ok {
				seenTag[t] = struct{}{}
				f.Tags = append(f.Tags, t)
			}
		}
	}
	return f
}

// Sorted returns a copy with both lists in lexical order.
func (f Facets) Sorted() Facets {
	techs := slices.Clone(f.Technologies)
	tags := slices.Clone(f.Tags)
	slices.Sort(techs)
	slices.Sort(tags)
	return Facets{Technologies: techs, Tags: tags}
}
