package models

import (
	"net/url"
	"path"
	"slices"
	"strings"
)

// Project represents a portfolio project as confirmed by the remote service
type Project struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Technologies  []string      `json:"technologies"`
	Tags          []string      `json:"tags"`
	Links         []string      `json:"links"`
	CreatedAt     Date          `json:"created_at"`
	IsStarred     bool          `json:"is_starred"`
	AttachedFiles []ProjectFile `json:"attached_files"`
}

// ProjectFile is an attachment already persisted server-side
type ProjectFile struct {
	ID   int64  `json:"id"`
	File string `json:"file"`
}

// DisplayName returns the decoded last path segment of the file URL.
func (f ProjectFile) DisplayName() string {
	p := f.File
	if u, err := url.Parse(f.File); err == nil {
		p = u.Path
	}
	name := path.Base(p)
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// ProjectDetail is the single-project response, including the related projects
// computed by the remote service.
type ProjectDetail struct {
	Project
	RelatedProjects []Project `json:"related_projects,omitempty"`
}

// ProjectInput holds the editable scalar and collection fields of a project.
// It is the JSON body of the projectData multipart field.
type ProjectInput struct {
	Name         string   `json:"name" validate:"required,notblank"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
	Tags         []string `json:"tags"`
	Links        []string `json:"links" validate:"omitempty,dive,url"`
	CreatedAt    Date     `json:"created_at"`
	IsStarred    bool     `json:"is_starred"`
}

// InputFrom extracts the editable fields of p, used to seed an edit dialog.
func InputFrom(p Project) ProjectInput {
	return ProjectInput{
		Name:         p.Name,
		Description:  p.Description,
		Technologies: slices.Clone(p.Technologies),
		Tags:         slices.Clone(p.Tags),
		Links:        slices.Clone(p.Links),
		CreatedAt:    p.CreatedAt,
		IsStarred:    p.IsStarred,
	}
}

// Normalized trims the name and replaces nil collections with empty ones so the
// service always receives arrays.
func (in ProjectInput) Normalized() ProjectInput {
	in.Name = strings.TrimSpace(in.Name)
	if in.Technologies == nil {
		in.Technologies = []string{}
	}
	if in.Tags == nil {
		in.Tags = []string{}
	}
	if in.Links == nil {
		in.Links = []string{}
	}
	return in
}

// ProjectChanges is a partial project. Nil fields are absent and left untouched
// when the changes are merged into a record.
type ProjectChanges struct {
	Name          *string        `json:"name,omitempty"`
	Description   *string        `json:"description,omitempty"`
	Technologies  *[]string      `json:"technologies,omitempty"`
	Tags          *[]string      `json:"tags,omitempty"`
	Links         *[]string      `json:"links,omitempty"`
	CreatedAt     *Date          `json:"created_at,omitempty"`
	IsStarred     *bool          `json:"is_starred,omitempty"`
	AttachedFiles *[]ProjectFile `json:"attached_files,omitempty"`
}

// ChangesFrom returns a change set carrying every field of p except its id.
func ChangesFrom(p Project) ProjectChanges {
	return ProjectChanges{
		Name:          &p.Name,
		Description:   &p.Description,
		Technologies:  &p.Technologies,
		Tags:          &p.Tags,
		Links:         &p.Links,
		CreatedAt:     &p.CreatedAt,
		IsStarred:     &p.IsStarred,
		AttachedFiles: &p.AttachedFiles,
	}
}

// Apply shallow-merges the present fields of c into a copy of p.
func (c ProjectChanges) Apply(p Project) Project {
	if c.Name != nil {
		p.Name = *c.Name
	}
	if c.Description != nil {
		p.Description = *c.Description
	}
	if c.Technologies != nil {
		p.Technologies = slices.Clone(*c.Technologies)
	}
	if c.Tags != nil {
		p.Tags = slices.Clone(*c.Tags)
	}
	if c.Links != nil {
		p.Links = slices.Clone(*c.Links)
	}
	if c.CreatedAt != nil {
		p.CreatedAt = *c.CreatedAt
	}
	if c.IsStarred != nil {
		p.IsStarred = *c.IsStarred
	}
	if c.AttachedFiles != nil {
		p.AttachedFiles = slices.Clone(*c.AttachedFiles)
	}
	return p
}

// IsEmpty reports whether no field is present.
func (c ProjectChanges) IsEmpty() bool {
	return c == ProjectChanges{}
}
