package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/rpupo63/portfolio-dashboard-core/errs"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// Login exchanges username and password for an access token and installs it
// through the gate, closing any open re-authentication prompt. Rejected
// credentials return ErrInvalidCredentials and leave the session unchanged.
func (c *Client) Login(ctx context.Context, username, password string) error {
	const operation = "login"
	data, err := json.Marshal(credentials{Username: username, Password: password})
	if err != nil {
		return errs.NewJSONMarshalError(operation, err)
	}

	var tok tokenResponse
	err = c.do(ctx, call{
		operation:   operation,
		method:      http.MethodPost,
		path:        []string{"token"},
		body:        bytes.NewReader(data),
		contentType: "application/json",
		credential:  anonymous,
		exchange:    true,
	}, &tok)
	if err != nil {
		return err
	}
	if tok.Access == "" {
		return errs.NewJSONUnmarshalError(operation, errs.ErrMissingToken)
	}

	c.gate.Login(tok.Access)
	return nil
}
