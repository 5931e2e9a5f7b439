package view

import (
	"strings"

	"github.com/rpupo63/portfolio-dashboard-core/models"
)

// AdminView backs the admin table.
type AdminView struct {
	Rows   []models.Project
	Total  int
	Latest string
}

// Admin filters by name only (case-insensitive) and keeps collection order.
// Total counts the whole collection and Latest is the name of its last record.
func Admin(projects []models.Project, query string) AdminView {
	v := AdminView{Rows: make([]models.Project, 0, len(projects)), Total: len(projects)}
	if len(projects) > 0 {
		v.Latest = projects[len(projects)-1].Name
	}
	q := strings.ToLower(query)
	for _, p := range projects {
		if strings.Contains(strings.ToLower(p.Name), q) {
			v.Rows = append(v.Rows, p)
		}
	}
	return v
}
