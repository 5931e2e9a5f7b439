package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/rpupo63/portfolio-dashboard-core/errs"
	"github.com/rpupo63/portfolio-dashboard-core/models"
)

const relationSettingsPath = "relation-settings"

func (c *Client) GetRelationSettings(ctx context.Context) (models.RelationSettings, error) {
	var settings models.RelationSettings
	err := c.do(ctx, call{
		operation:  "getRelationSettings",
		method:     http.MethodGet,
		path:       []string{relationSettingsPath},
		credential: required,
	}, &settings)
	return settings, err
}

// UpdateRelationSettings stores the exclusion lists. The response carries the
// new updated_at and the service's confirmation message.
func (c *Client) UpdateRelationSettings(ctx context.Context, settings models.RelationSettings) (models.RelationSettings, error) {
	const operation = "updateRelationSettings"
	data, err := json.Marshal(settings.Request())
	if err != nil {
		return models.RelationSettings{}, errs.NewJSONMarshalError(operation, err)
	}

	var saved models.RelationSettings
	err = c.do(ctx, call{
		operation:   operation,
		method:      http.MethodPut,
		path:        []string{relationSettingsPath},
		body:        bytes.NewReader(data),
		contentType: "application/json",
		credential:  required,
	}, &saved)
	return saved, err
}
