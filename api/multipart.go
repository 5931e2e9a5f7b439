package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/rpupo63/portfolio-dashboard-core/attachments"
	"github.com/rpupo63/portfolio-dashboard-core/errs"
	"github.com/rpupo63/portfolio-dashboard-core/models"
)

// Multipart field names understood by the service.
const (
	fieldProjectData   = "projectData"
	fieldAttachedFiles = "attached_files"
	fieldRetainedFiles = "retained_files"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeProjectForm writes the create or update body. The project fields go
// in projectData as JSON, each upload is one attached_files part in plan
// order, and on update retained_files always carries the JSON array of kept
// URLs, [] when none are kept.
func encodeProjectForm(operation string, input models.ProjectInput, plan attachments.Plan, update bool) (*bytes.Buffer, string, error) {
	data, err := json.Marshal(input.Normalized())
	if err != nil {
		return nil, "", errs.NewJSONMarshalError(operation, err)
	}

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	if err := w.WriteField(fieldProjectData, string(data)); err != nil {
		return nil, "", fmt.Errorf("write %s: %w", fieldProjectData, err)
	}

	for _, u := range plan.Uploads {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			fieldAttachedFiles, quoteEscaper.Replace(u.Name)))
		h.Set("Content-Type", http.DetectContentType(u.Payload))
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create part for %q: %w", u.Name, err)
		}
		if _, err := part.Write(u.Payload); err != nil {
			return nil, "", fmt.Errorf("write part for %q: %w", u.Name, err)
		}
	}

	if update {
		retained, err := plan.RetainedJSON()
		if err != nil {
			return nil, "", errs.NewJSONMarshalError(operation, err)
		}
		if err := w.WriteField(fieldRetainedFiles, string(retained)); err != nil {
			return nil, "", fmt.Errorf("write %s: %w", fieldRetainedFiles, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return body, w.FormDataContentType(), nil
}
