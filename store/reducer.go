package store

import (
	"slices"

	"github.com/rpupo63/portfolio-dashboard-core/models"
)

// Command is a typed mutation of the project collection.
type Command interface {
	Name() string
}

// Load replaces the whole collection, typically with a fresh list response.
type Load struct {
	Projects []models.Project
}

// Insert appends newly created records in arrival order.
type Insert struct {
	Projects []models.Project
}

// Remove drops the record with ID.
type Remove struct {
	ID int64
}

// Patch merges Changes into the record with ID.
type Patch struct {
	ID      int64
	Changes models.ProjectChanges
}

func (Load) Name() string   { return "load" }
func (Insert) Name() string { return "insert" }
func (Remove) Name() string { return "remove" }
func (Patch) Name() string  { return "patch" }

// Reduce applies cmd to current and returns the next collection. current is
// never modified. Commands naming an absent id leave the collection as is, and
// records whose id is already present are dropped so ids stay unique.
func Reduce(current []models.Project, cmd Command) []models.Project {
	next, _ := reduce(current, cmd)
	return next
}

// reduce also reports the ids dropped as duplicates.
func reduce(current []models.Project, cmd Command) ([]models.Project, []int64) {
	switch c := cmd.(type) {
	case Load:
		return appendUnique(make([]models.Project, 0, len(c.Projects)), c.Projects)
	case *Load:
		return reduce(current, *c)
	case Insert:
		next := make([]models.Project, len(current), len(current)+len(c.Projects))
		copy(next, current)
		return appendUnique(next, c.Projects)
	case *Insert:
		return reduce(current, *c)
	case Remove:
		next := make([]models.Project, 0, len(current))
		for _, p := range current {
			if p.ID != c.ID {
				next = append(next, p)
			}
		}
		return next, nil
	case *Remove:
		return reduce(current, *c)
	case Patch:
		next := slices.Clone(current)
		if next == nil {
			next = []models.Project{}
		}
		for i := range next {
			if next[i].ID == c.ID {
				next[i] = c.Changes.Apply(next[i])
				break
			}
		}
		return next, nil
	case *Patch:
		return reduce(current, *c)
	default:
		next := slices.Clone(current)
		if next == nil {
			next = []models.Project{}
		}
		return next, nil
	}
}

func appendUnique(dst []models.Project, records []models.Project) ([]models.Project, []int64) {
	var dropped []int64
	for _, p := range records {
		if slices.ContainsFunc(dst, func(q models.Project) bool { return q.ID == p.ID }) {
			dropped = append(dropped, p.ID)
			continue
		}
		dst = append(dst, p)
	}
	return dst, dropped
}
