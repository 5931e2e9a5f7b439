// Package attachments reconciles the files staged in a project dialog with the
// files the service already holds.
//
// A descriptor is either existing (it has a URL and refers to a persisted
// file) or pending (it has a payload and is uploaded on submit). On update the
// service keeps exactly the existing files whose URLs are listed as retained;
// every other persisted file is deleted. Deletions names that set explicitly.
package attachments

import (
	"slices"

	"github.com/google/uuid"

	"github.com/rpupo63/portfolio-dashboard-core/models"
)

// Descriptor is one staged attachment. Key identifies it within a dialog
// session and is never derived from Name; two descriptors may share a name.
type Descriptor struct {
	Key     string
	Name    string
	URL     string
	Payload []byte
}

// Existing describes a file already persisted at url.
func Existing(name, url string) Descriptor {
	return Descriptor{Key: uuid.NewString(), Name: name, URL: url}
}

// Pending describes a file staged for upload.
func Pending(name string, payload []byte) Descriptor {
	if payload == nil {
		payload = []byte{}
	}
	return Descriptor{Key: uuid.NewString(), Name: name, Payload: payload}
}

// FromProjectFile describes a persisted project file.
func FromProjectFile(f models.ProjectFile) Descriptor {
	return Existing(f.DisplayName(), f.File)
}

// IsExisting reports whether d refers to a persisted file.
func (d Descriptor) IsExisting() bool {
	return d.URL != ""
}

// IsPending reports whether d is staged for upload.
func (d Descriptor) IsPending() bool {
	return d.URL == "" && d.Payload != nil
}

// Staging is the attachment list of one open dialog. Only its final state
// matters at submit time.
type Staging struct {
	items []Descriptor
}

// NewStaging seeds a staging list with the project's persisted files.
func NewStaging(files []models.ProjectFile) *Staging {
	s := &Staging{items: make([]Descriptor, 0, len(files))}
	for _, f := range files {
		s.items = append(s.items, FromProjectFile(f))
	}
	return s
}

// Add stages a new upload and returns its descriptor.
func (s *Staging) Add(name string, payload []byte) Descriptor {
	d := Pending(name, payload)
	s.items = append(s.items, d)
	return d
}

// Remove drops the descriptor with key. It reports whether one was found.
func (s *Staging) Remove(key string) bool {
	i := slices.IndexFunc(s.items, func(d Descriptor) bool { return d.Key == key })
	if i < 0 {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	return true
}

// Clear drops every staged descriptor.
func (s *Staging) Clear() {
	s.items = s.items[:0]
}

// Descriptors returns a copy of the staged list in order.
func (s *Staging) Descriptors() []Descriptor {
	return slices.Clone(s.items)
}

func (s *Staging) Len() int {
	return len(s.items)
}
