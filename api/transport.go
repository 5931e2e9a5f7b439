package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/rpupo63/portfolio-dashboard-core/auth"
)

// loggingTransport logs every round trip with its status and duration. The
// level follows the status class.
type loggingTransport struct {
	next   http.RoundTripper
	logger zerolog.Logger
}

func (t loggingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(r)
	duration := time.Since(start)

	if err != nil {
		t.logger.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("flow", auth.FlowID(r.Context())).
			Dur("duration", duration).
			Msg("HTTP request failed")
		return nil, err
	}

	var logEvent *zerolog.Event
	switch {
	case resp.StatusCode >= 500:
		logEvent = t.logger.Error()
	case resp.StatusCode >= 400:
		logEvent = t.logger.Warn()
	default:
		logEvent = t.logger.Debug()
	}

	logEvent.
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", resp.StatusCode).
		Str("flow", auth.FlowID(r.Context())).
		Dur("duration", duration).
		Msg("HTTP request")
	return resp, nil
}

// newClients builds the anonymous client and the one that attaches the
// session's bearer token. The session is read on every request, so a new
// login applies to the next call.
func newClients(base *http.Client, session *auth.Session, logger zerolog.Logger) (plain, bearer *http.Client) {
	next := base.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	logged := loggingTransport{next: next, logger: logger}

	plain = &http.Client{
		Transport:     logged,
		Timeout:       base.Timeout,
		CheckRedirect: base.CheckRedirect,
		Jar:           base.Jar,
	}
	bearer = &http.Client{
		Transport: &oauth2.Transport{
			Source: session.TokenSource(),
			Base:   logged,
		},
		Timeout:       base.Timeout,
		CheckRedirect: base.CheckRedirect,
		Jar:           base.Jar,
	}
	return plain, bearer
}
