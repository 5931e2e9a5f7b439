package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rpupo63/portfolio-dashboard-core/attachments"
	"github.com/rpupo63/portfolio-dashboard-core/errs"
	"github.com/rpupo63/portfolio-dashboard-core/models"
)

const projectsPath = "projects"

// ListOptions filters the project list. A nil Starred lists every project.
type ListOptions struct {
	Starred *bool
}

// ListProjects fetches the full collection. The token is sent when present.
func (c *Client) ListProjects(ctx context.Context, opts ListOptions) ([]models.Project, error) {
	query := url.Values{}
	if opts.Starred != nil {
		query.Set("is_starred", strconv.FormatBool(*opts.Starred))
	}

	var projects []models.Project
	err := c.do(ctx, call{
		operation:  "listProjects",
		method:     http.MethodGet,
		path:       []string{projectsPath},
		query:      query,
		credential: optional,
	}, &projects)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []models.Project{}
	}
	return projects, nil
}

// GetProject fetches one project with the related projects computed by the
// service.
func (c *Client) GetProject(ctx context.Context, id int64) (models.ProjectDetail, error) {
	var detail models.ProjectDetail
	err := c.do(ctx, call{
		operation:  "getProject",
		method:     http.MethodGet,
		path:       []string{projectsPath, strconv.FormatInt(id, 10)},
		credential: optional,
		entity:     "project",
	}, &detail)
	return detail, err
}

// CreateProject uploads a new project with its pending attachments. A plan
// that retains existing files is rejected before any request is sent.
func (c *Client) CreateProject(ctx context.Context, input models.ProjectInput, plan attachments.Plan) (models.Project, error) {
	const operation = "createProject"
	if plan.HasExisting() {
		return models.Project{}, errs.NewBadRequestError("a new project cannot retain existing files")
	}

	body, contentType, err := encodeProjectForm(operation, input, plan, false)
	if err != nil {
		return models.Project{}, err
	}

	var created models.Project
	err = c.do(ctx, call{
		operation:   operation,
		method:      http.MethodPost,
		path:        []string{projectsPath},
		body:        body,
		contentType: contentType,
		credential:  required,
	}, &created)
	return created, err
}

// UpdateProject replaces the project's fields and attachments. The service
// keeps exactly the files listed in plan.Retained, adds the uploads and
// deletes every other file the project had. Only the fields the response
// carries are present in the returned changes.
func (c *Client) UpdateProject(ctx context.Context, id int64, input models.ProjectInput, plan attachments.Plan) (models.ProjectChanges, error) {
	const operation = "updateProject"
	body, contentType, err := encodeProjectForm(operation, input, plan, true)
	if err != nil {
		return models.ProjectChanges{}, err
	}

	var updated models.ProjectChanges
	err = c.do(ctx, call{
		operation:   operation,
		method:      http.MethodPut,
		path:        []string{projectsPath, strconv.FormatInt(id, 10)},
		body:        body,
		contentType: contentType,
		credential:  required,
		entity:      "project",
	}, &updated)
	return updated, err
}

func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	return c.do(ctx, call{
		operation:  "deleteProject",
		method:     http.MethodDelete,
		path:       []string{projectsPath, strconv.FormatInt(id, 10)},
		credential: required,
		entity:     "project",
	}, nil)
}

// ListTechnologies returns every technology used by some project, in the
// service's order.
func (c *Client) ListTechnologies(ctx context.Context) ([]string, error) {
	var techs []string
	err := c.do(ctx, call{
		operation:  "listTechnologies",
		method:     http.MethodGet,
		path:       []string{"technologies"},
		credential: optional,
	}, &techs)
	if err != nil {
		return nil, err
	}
	if techs == nil {
		techs = []string{}
	}
	return techs, nil
}
