package attachments

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/rpupo63/portfolio-dashboard-core/models"
)

// ErrAmbiguousDescriptor marks a descriptor that is not clearly existing or
// pending: it carries both a URL and a payload, or neither a URL nor a name.
var ErrAmbiguousDescriptor = errors.New("ambiguous attachment descriptor")

// Upload is one binary part of the multipart request.
type Upload struct {
	Key     string
	Name    string
	Payload []byte
}

// Plan is the attachment half of a create or update request.
type Plan struct {
	Uploads  []Upload
	Retained []string
}

// Reconcile partitions the staged list into uploads (descriptors without a
// URL) and retained URLs (descriptors with one), both in input order. It is
// pure; the same input always yields the same plan. Retained is never nil so
// an empty list still encodes as [].
func Reconcile(staged []Descriptor) (Plan, error) {
	plan := Plan{
		Uploads:  make([]Upload, 0, len(staged)),
		Retained: make([]string, 0, len(staged)),
	}
	for i, d := range staged {
		switch {
		case d.URL != "" && d.Payload != nil:
			return Plan{}, fmt.Errorf("attachment %d (%q) has both a url and a payload: %w", i, d.Name, ErrAmbiguousDescriptor)
		case d.URL != "":
			plan.Retained = append(plan.Retained, d.URL)
		case d.Name == "":
			return Plan{}, fmt.Errorf("attachment %d has neither a url nor a name: %w", i, ErrAmbiguousDescriptor)
		default:
			payload := d.Payload
			if payload == nil {
				payload = []byte{}
			}
			plan.Uploads = append(plan.Uploads, Upload{Key: d.Key, Name: d.Name, Payload: payload})
		}
	}
	return plan, nil
}

// Deletions lists the previously persisted files that the plan does not retain,
// in their original order. The service deletes exactly these on update.
func Deletions(previous []models.ProjectFile, plan Plan) []string {
	var deleted []string
	for _, f := range previous {
		if !slices.Contains(plan.Retained, f.File) {
			deleted = append(deleted, f.File)
		}
	}
	return deleted
}

// RetainedJSON encodes the retained URLs as a JSON array, [] when empty.
func (p Plan) RetainedJSON() ([]byte, error) {
	retained := p.Retained
	if retained == nil {
		retained = []string{}
	}
	return json.Marshal(retained)
}

// HasExisting reports whether any URL is retained. Create requests must not
// carry retained files.
func (p Plan) HasExisting() bool {
	return len(p.Retained) > 0
}
