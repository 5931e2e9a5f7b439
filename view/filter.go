// Package view derives the filtered and ordered project lists shown by the
// listing and admin screens. Nothing here mutates the collection it reads.
package view

import (
	"slices"
	"strings"

	"github.com/rpupo63/portfolio-dashboard-core/models"
)

type Order int

const (
	Newest Order = iota
	Oldest
)

func (o Order) String() string {
	if o == Oldest {
		return "oldest"
	}
	return "newest"
}

// ParseOrder maps "oldest" to Oldest and anything else to Newest.
func ParseOrder(s string) Order {
	if strings.EqualFold(strings.TrimSpace(s), "oldest") {
		return Oldest
	}
	return Newest
}

// Params are the listing screen's filter controls. Empty fields do not
// constrain the result.
type Params struct {
	Search       string
	Technologies []string
	Tags         []string
	Order        Order
}

// key identifies p for memoization. Selection order does not matter.
func (p Params) key() string {
	techs := slices.Sorted(slices.Values(p.Technologies))
	tags := slices.Sorted(slices.Values(p.Tags))
	return strings.Join([]string{
		strings.ToLower(p.Search),
		strings.Join(techs, "\x1f"),
		strings.Join(tags, "\x1f"),
		p.Order.String(),
	}, "\x1e")
}

// Match reports whether p satisfies every constraint of params: the search
// text appears in the name or description (case-insensitive), and p shares at
// least one technology and one tag with the respective selections.
func Match(p models.Project, params Params) bool {
	if params.Search != "" {
		q := strings.ToLower(params.Search)
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	if len(params.Technologies) > 0 && !intersects(p.Technologies, params.Technologies) {
		return false
	}
	if len(params.Tags) > 0 && !intersects(p.Tags, params.Tags) {
		return false
	}
	return true
}

func intersects(values, selected []string) bool {
	for _, s := range selected {
		if slices.Contains(values, s) {
			return true
		}
	}
	return false
}

// Derive filters projects and sorts the matches by creation date in the
// requested order. Ties keep their collection order. The result is a new slice.
func Derive(projects []models.Project, params Params) []models.Project {
	out := make([]models.Project, 0, len(projects))
	for _, p := range projects {
		if Match(p, params) {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b models.Project) int {
		if params.Order == Oldest {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}
