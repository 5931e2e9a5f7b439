package services

import (
	"errors"

	"github.com/rpupo63/portfolio-dashboard-core/errs"
	"github.com/rpupo63/portfolio-dashboard-core/models"
)

// Kind classifies the result of a submission.
type Kind int

const (
	OK Kind = iota
	ValidationFailed
	Unauthorized
	TransportFailed
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case ValidationFailed:
		return "validation_failed"
	case Unauthorized:
		return "unauthorized"
	default:
		return "transport_failed"
	}
}

// Outcome is the tagged result of a create, update or delete. Only the field
// matching Kind is set: Project for OK, Fields for ValidationFailed and Err
// for the two failure kinds.
type Outcome struct {
	Kind    Kind
	Project *models.Project
	Fields  []errs.FieldError
	Err     *errs.ApiErr
}

func Succeeded(p *models.Project) Outcome {
	return Outcome{Kind: OK, Project: p}
}

func Invalid(fields ...errs.FieldError) Outcome {
	return Outcome{Kind: ValidationFailed, Fields: fields}
}

// Failed classifies err. Missing and rejected credentials are Unauthorized;
// anything else that is not a validation error is TransportFailed.
func Failed(err error) Outcome {
	var verr *errs.ValidationError
	if errors.As(err, &verr) {
		return Invalid(verr.Fields...)
	}
	apiErr := errs.AsApiErr(err)
	if errs.IsUnauthorized(err) {
		return Outcome{Kind: Unauthorized, Err: apiErr}
	}
	return Outcome{Kind: TransportFailed, Err: apiErr}
}

// AsError returns the failure as an error, nil for OK.
func (o Outcome) AsError() error {
	switch o.Kind {
	case OK:
		return nil
	case ValidationFailed:
		return errs.NewValidationError(o.Fields...)
	default:
		if o.Err == nil {
			return nil
		}
		return o.Err
	}
}
