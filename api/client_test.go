package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpupo63/portfolio-dashboard-core/attachments"
	"github.com/rpupo63/portfolio-dashboard-core/auth"
	"github.com/rpupo63/portfolio-dashboard-core/errs"
	"github.com/rpupo63/portfolio-dashboard-core/models"
)

// recorded is what the fake service saw for one request.
type recorded struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	ProjectData   string
	Retained      []string
	HasRetained   bool
	FileNames     []string
	FileBodies    []string
}

type fakeService struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	requests []recorded
	projects map[int64]models.Project
	nextID   int64
	settings models.RelationSettings
	// status, when set, is returned by every project route instead of the
	// normal response.
	status int
	body   string
}

func newFakeService(t *testing.T) *fakeService {
	f := &fakeService{
		t:        t,
		projects: map[int64]models.Project{},
		nextID:   1,
	}
	f.projects[7] = models.Project{
		ID:            7,
		Name:          "Existing",
		Technologies:  []string{"Go"},
		Tags:          []string{"cli"},
		CreatedAt:     models.NewDate(2024, time.January, 2),
		IsStarred:     true,
		AttachedFiles: []models.ProjectFile{{ID: 1, File: "https://x/old.png"}, {ID: 2, File: "https://x/gone.png"}},
	}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/token/", f.token)
		r.Get("/projects/", f.listProjects)
		r.Post("/projects/", f.createProject)
		r.Get("/projects/{id}/", f.getProject)
		r.Put("/projects/{id}/", f.updateProject)
		r.Delete("/projects/{id}/", f.deleteProject)
		r.Get("/technologies/", f.technologies)
		r.Get("/relation-settings/", f.getSettings)
		r.Put("/relation-settings/", f.putSettings)
	})
	f.server = httptest.NewServer(r)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeService) url() string {
	return f.server.URL + "/api/"
}

func (f *fakeService) record(r *http.Request) recorded {
	rec := recorded{
		Method:        r.Method,
		Path:          r.URL.Path,
		Query:         r.URL.RawQuery,
		Authorization: r.Header.Get("Authorization"),
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		require.NoError(f.t, r.ParseMultipartForm(10<<20))
		form := r.MultipartForm
		if v := form.Value["projectData"]; len(v) > 0 {
			rec.ProjectData = v[0]
		}
		if v, ok := form.Value["retained_files"]; ok {
			rec.HasRetained = true
			require.NoError(f.t, json.Unmarshal([]byte(v[0]), &rec.Retained))
		}
		for _, fh := range form.File["attached_files"] {
			rec.FileNames = append(rec.FileNames, fh.Filename)
			file, err := fh.Open()
			require.NoError(f.t, err)
			data, err := io.ReadAll(file)
			require.NoError(f.t, err)
			file.Close()
			rec.FileBodies = append(rec.FileBodies, string(data))
		}
	}
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()
	return rec
}

func (f *fakeService) seen() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recorded(nil), f.requests...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// authorized mimics the service's authentication check.
func (f *fakeService) authorized(w http.ResponseWriter, rec recorded) bool {
	if rec.Authorization != "Bearer good-token" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Authentication required"})
		return false
	}
	return true
}

func (f *fakeService) override(w http.ResponseWriter) bool {
	f.mu.Lock()
	status, body := f.status, f.body
	f.mu.Unlock()
	if status == 0 {
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
	return true
}

func (f *fakeService) token(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	var creds credentials
	_ = json.NewDecoder(r.Body).Decode(&creds)
	if creds.Username != "admin" || creds.Password != "secret" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Access: "good-token", Refresh: "r"})
}

func (f *fakeService) listProjects(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	if f.override(w) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Project{}
	for _, p := range f.projects {
		if s := r.URL.Query().Get("is_starred"); s != "" && strconv.FormatBool(p.IsStarred) != s {
			continue
		}
		out = append(out, p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *fakeService) getProject(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	f.mu.Lock()
	p, ok := f.projects[id]
	f.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, models.ProjectDetail{
		Project:         p,
		RelatedProjects: []models.Project{{ID: 8, Name: "Sibling"}},
	})
}

func (f *fakeService) createProject(w http.ResponseWriter, r *http.Request) {
	rec := f.record(r)
	if !f.authorized(w, rec) || f.override(w) {
		return
	}
	var in models.ProjectInput
	require.NoError(f.t, json.Unmarshal([]byte(rec.ProjectData), &in))

	f.mu.Lock()
	id := 100 + f.nextID
	f.nextID++
	p := models.Project{
		ID:           id,
		Name:         in.Name,
		Description:  in.Description,
		Technologies: in.Technologies,
		Tags:         in.Tags,
		Links:        in.Links,
		CreatedAt:    in.CreatedAt,
		IsStarred:    in.IsStarred,
	}
	for i, name := range rec.FileNames {
		p.AttachedFiles = append(p.AttachedFiles, models.ProjectFile{ID: int64(i + 1), File: "https://x/" + name})
	}
	f.projects[id] = p
	f.mu.Unlock()

	writeJSON(w, http.StatusCreated, p)
}

func (f *fakeService) updateProject(w http.ResponseWriter, r *http.Request) {
	rec := f.record(r)
	if !f.authorized(w, rec) || f.override(w) {
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.projects[id]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	var in models.ProjectInput
	require.NoError(f.t, json.Unmarshal([]byte(rec.ProjectData), &in))
	p.Name, p.Description = in.Name, in.Description
	p.Technologies, p.Tags, p.Links = in.Technologies, in.Tags, in.Links

	kept := []models.ProjectFile{}
	for _, file := range p.AttachedFiles {
		for _, url := range rec.Retained {
			if url == file.File {
				kept = append(kept, file)
			}
		}
	}
	for i, name := range rec.FileNames {
		kept = append(kept, models.ProjectFile{ID: int64(50 + i), File: "https://x/" + name})
	}
	p.AttachedFiles = kept
	f.projects[id] = p

	writeJSON(w, http.StatusOK, p)
}

func (f *fakeService) deleteProject(w http.ResponseWriter, r *http.Request) {
	rec := f.record(r)
	if !f.authorized(w, rec) {
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.projects[id]; !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	delete(f.projects, id)
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeService) technologies(w http.ResponseWriter, r *http.Request) {
	f.record(r)
	writeJSON(w, http.StatusOK, []string{"Go", "React"})
}

func (f *fakeService) getSettings(w http.ResponseWriter, r *http.Request) {
	rec := f.record(r)
	if !f.authorized(w, rec) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, f.settings.Request())
}

func (f *fakeService) putSettings(w http.ResponseWriter, r *http.Request) {
	rec := f.record(r)
	if !f.authorized(w, rec) {
		return
	}
	var in models.RelationSettings
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&in))
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

	f.mu.Lock()
	f.settings = in
	f.mu.Unlock()

	in.UpdatedAt = &now
	in.Message = "Settings updated successfully"
	writeJSON(w, http.StatusOK, in)
}

type harness struct {
	svc     *fakeService
	session *auth.Session
	gate    *auth.Gate
	client  *Client
	metrics *Metrics
	prompts *[]auth.Prompt
}

func newHarness(t *testing.T, token string) harness {
	svc := newFakeService(t)
	session := auth.NewSession(token)
	gate := auth.NewGate(session)

	var mu sync.Mutex
	prompts := &[]auth.Prompt{}
	gate.OnUnauthorized(func(p auth.Prompt) {
		mu.Lock()
		*prompts = append(*prompts, p)
		mu.Unlock()
	})

	metrics := NewMetrics(prometheus.NewRegistry())
	client, err := New(svc.url(), gate, WithMetrics(metrics), WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	return harness{svc: svc, session: session, gate: gate, client: client, metrics: metrics, prompts: prompts}
}

func TestCreateProjectSendsMultipart(t *testing.T) {
	h := newHarness(t, "good-token")
	ctx := context.Background()

	plan, err := attachments.Reconcile([]attachments.Descriptor{
		attachments.Pending("diagram.png", []byte("png-bytes")),
		attachments.Pending("diagram.png", []byte("second")),
	})
	require.NoError(t, err)

	created, err := h.client.CreateProject(ctx, models.ProjectInput{
		Name:  "  New thing ",
		Links: []string{"https://github.com/x/y"},
	}, plan)
	require.NoError(t, err)
	assert.Equal(t, "New thing", created.Name)
	assert.Equal(t, int64(101), created.ID)
	assert.Len(t, created.AttachedFiles, 2)

	reqs := h.svc.seen()
	require.Len(t, reqs, 1)
	rec := reqs[0]
	assert.Equal(t, "Bearer good-token", rec.Authorization)
	assert.False(t, rec.HasRetained, "create never sends retained_files")
	assert.Equal(t, []string{"diagram.png", "diagram.png"}, rec.FileNames)
	assert.Equal(t, []string{"png-bytes", "second"}, rec.FileBodies)
	assert.JSONEq(t, `{
		"name": "New thing",
		"description": "",
		"technologies": [],
		"tags": [],
		"links": ["https://github.com/x/y"],
		"created_at": null,
		"is_starred": false
	}`, rec.ProjectData)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.RequestsTotal.WithLabelValues("createProject", "201")))
}

func TestCreateProjectRejectsRetainedFiles(t *testing.T) {
	h := newHarness(t, "good-token")
	_, err := h.client.CreateProject(context.Background(), models.ProjectInput{Name: "x"},
		attachments.Plan{Retained: []string{"https://x/a.png"}})
	require.Error(t, err)
	assert.Equal(t, errs.CodeBadRequest, errs.AsApiErr(err).Code)
	assert.Empty(t, h.svc.seen())
}

func TestUpdateProjectEditSubmit(t *testing.T) {
	h := newHarness(t, "good-token")

	staging := attachments.NewStaging(h.svc.projects[7].AttachedFiles)
	for _, d := range staging.Descriptors() {
		if d.URL == "https://x/gone.png" {
			staging.Remove(d.Key)
		}
	}
	staging.Add("new.png", []byte("fresh"))
	plan, err := attachments.Reconcile(staging.Descriptors())
	require.NoError(t, err)

	updated, err := h.client.UpdateProject(context.Background(), 7, models.ProjectInput{Name: "Existing v2"}, plan)
	require.NoError(t, err)

	rec := h.svc.seen()[0]
	assert.Equal(t, http.MethodPut, rec.Method)
	assert.Equal(t, "/api/projects/7/", rec.Path)
	assert.True(t, rec.HasRetained)
	assert.Equal(t, []string{"https://x/old.png"}, rec.Retained)
	assert.Equal(t, []string{"new.png"}, rec.FileNames)

	require.NotNil(t, updated.Name)
	assert.Equal(t, "Existing v2", *updated.Name)
	require.NotNil(t, updated.AttachedFiles)
	assert.Equal(t, []models.ProjectFile{
		{ID: 1, File: "https://x/old.png"},
		{ID: 50, File: "https://x/new.png"},
	}, *updated.AttachedFiles)
}

func TestUpdateProjectWithNoAttachmentsSendsEmptyRetained(t *testing.T) {
	h := newHarness(t, "good-token")

	plan, err := attachments.Reconcile(nil)
	require.NoError(t, err)

	updated, err := h.client.UpdateProject(context.Background(), 7, models.ProjectInput{Name: "Existing"}, plan)
	require.NoError(t, err)

	rec := h.svc.seen()[0]
	assert.True(t, rec.HasRetained, "retained_files is present even when empty")
	assert.NotNil(t, rec.Retained)
	assert.Empty(t, rec.Retained)
	assert.Empty(t, rec.FileNames)
	require.NotNil(t, updated.AttachedFiles)
	assert.Empty(t, *updated.AttachedFiles)
}

func TestUpdateProjectPartialResponse(t *testing.T) {
	h := newHarness(t, "good-token")
	h.svc.status, h.svc.body = http.StatusOK, `{"id": 7, "name": "v2"}`

	updated, err := h.client.UpdateProject(context.Background(), 7, models.ProjectInput{Name: "v2"}, attachments.Plan{})
	require.NoError(t, err)

	require.NotNil(t, updated.Name)
	assert.Equal(t, "v2", *updated.Name)
	assert.Nil(t, updated.Description)
	assert.Nil(t, updated.Tags)
	assert.Nil(t, updated.CreatedAt)
	assert.Nil(t, updated.AttachedFiles)

	current := h.svc.projects[7]
	assert.Equal(t, current.Tags, updated.Apply(current).Tags)
	assert.Equal(t, current.AttachedFiles, updated.Apply(current).AttachedFiles)
}

func TestMissingTokenIsNotSent(t *testing.T) {
	h := newHarness(t, "")
	ctx := auth.WithFlow(context.Background())

	_, err := h.client.CreateProject(ctx, models.ProjectInput{Name: "x"}, attachments.Plan{})
	require.Error(t, err)
	assert.True(t, errs.IsMissingTokenError(err))
	assert.True(t, errs.IsUnauthorized(err))

	err = h.client.DeleteProject(ctx, 7)
	assert.True(t, errs.IsMissingTokenError(err))

	assert.Empty(t, h.svc.seen(), "nothing reaches the service")
	require.Len(t, *h.prompts, 1, "one prompt per flow")
	assert.Equal(t, auth.FlowID(ctx), (*h.prompts)[0].FlowID)
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.UnauthorizedTotal))
}

func TestRejectedTokenRaisesGate(t *testing.T) {
	h := newHarness(t, "stale-token")

	_, err := h.client.UpdateProject(context.Background(), 7, models.ProjectInput{Name: "x"}, attachments.Plan{})
	require.Error(t, err)
	assert.True(t, errs.IsInvalidTokenError(err))

	apiErr := errs.AsApiErr(err)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "AuthorizationError", apiErr.Name())
	assert.Len(t, *h.prompts, 1)
	assert.Equal(t, "Bearer stale-token", h.svc.seen()[0].Authorization)
}

func TestLoginInstallsTokenForNextCall(t *testing.T) {
	h := newHarness(t, "")
	ctx := auth.WithFlow(context.Background())

	err := h.client.DeleteProject(ctx, 7)
	require.True(t, errs.IsMissingTokenError(err))
	require.True(t, h.gate.Active(ctx))

	require.NoError(t, h.client.Login(ctx, "admin", "secret"))
	assert.Equal(t, "good-token", h.session.Token())
	assert.False(t, h.gate.Active(ctx))

	// nothing is replayed; the caller resubmits
	require.NoError(t, h.client.DeleteProject(ctx, 7))
	reqs := h.svc.seen()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/api/token/", reqs[0].Path)
	assert.Empty(t, reqs[0].Authorization)
	assert.Equal(t, "Bearer good-token", reqs[1].Authorization)
}

func TestLoginWithBadCredentials(t *testing.T) {
	h := newHarness(t, "")

	err := h.client.Login(context.Background(), "admin", "wrong")
	require.Error(t, err)
	assert.True(t, errs.IsInvalidCredentialsError(err))
	assert.Contains(t, err.Error(), "No active account")
	assert.Empty(t, h.session.Token())
	assert.Empty(t, *h.prompts, "a failed login does not open another prompt")
}

func TestNotFound(t *testing.T) {
	h := newHarness(t, "good-token")

	_, err := h.client.UpdateProject(context.Background(), 99, models.ProjectInput{Name: "x"}, attachments.Plan{})
	assert.True(t, errs.IsNotFound(err))

	_, err = h.client.GetProject(context.Background(), 99)
	assert.True(t, errs.IsNotFound(err))
	assert.Equal(t, http.StatusNotFound, errs.AsApiErr(err).StatusCode)
}

func TestFailedStatusCarriesServerMessage(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   string
		msg    string
	}{
		{"server error", http.StatusInternalServerError, `{"error": "disk full"}`, errs.CodeBadResponse, "disk full"},
		{"field errors", http.StatusBadRequest, `{"name": ["This field is required."]}`, errs.CodeBadRequest, "name: This field is required."},
		{"detail", http.StatusForbidden, `{"detail": "not allowed"}`, errs.CodeBadRequest, "not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "good-token")
			h.svc.status, h.svc.body = tt.status, tt.body

			_, err := h.client.ListProjects(context.Background(), ListOptions{})
			require.Error(t, err)
			apiErr := errs.AsApiErr(err)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, "RequestError", apiErr.Name())
			assert.Contains(t, apiErr.Message(), tt.msg)
			assert.Empty(t, *h.prompts)
		})
	}
}

func TestTransportFailure(t *testing.T) {
	h := newHarness(t, "good-token")
	h.svc.server.Close()

	_, err := h.client.ListProjects(context.Background(), ListOptions{})
	require.Error(t, err)
	apiErr := errs.AsApiErr(err)
	assert.Equal(t, 0, apiErr.StatusCode)
	assert.Equal(t, errs.CodeNetwork, apiErr.Code)
	assert.Equal(t, "NetworkError", apiErr.Name())
	assert.True(t, errs.IsServiceUnreachableError(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.RequestsTotal.WithLabelValues("listProjects", "error")))
}

func TestCanceledContext(t *testing.T) {
	h := newHarness(t, "good-token")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.client.ListProjects(ctx, ListOptions{})
	assert.True(t, errs.IsRequestCanceledError(err))
	assert.Equal(t, errs.CodeCanceled, errs.AsApiErr(err).Code)
}

func TestListProjectsAnonymousAndStarred(t *testing.T) {
	h := newHarness(t, "")

	all, err := h.client.ListProjects(context.Background(), ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	starred := false
	none, err := h.client.ListProjects(context.Background(), ListOptions{Starred: &starred})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	reqs := h.svc.seen()
	assert.Empty(t, reqs[0].Authorization)
	assert.Equal(t, "is_starred=false", reqs[1].Query)
	assert.Empty(t, *h.prompts)
}

func TestGetProjectDecodesRelated(t *testing.T) {
	h := newHarness(t, "")

	detail, err := h.client.GetProject(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Existing", detail.Name)
	assert.Equal(t, models.NewDate(2024, time.January, 2), detail.CreatedAt)
	require.Len(t, detail.RelatedProjects, 1)
	assert.Equal(t, "Sibling", detail.RelatedProjects[0].Name)
}

func TestRelationSettingsRoundTrip(t *testing.T) {
	h := newHarness(t, "good-token")
	ctx := context.Background()

	saved, err := h.client.UpdateRelationSettings(ctx, models.RelationSettings{ExcludedTags: []string{"cli"}})
	require.NoError(t, err)
	assert.Equal(t, "Settings updated successfully", saved.Message)
	require.NotNil(t, saved.UpdatedAt)
	assert.Equal(t, []string{}, saved.ExcludedTechnologies)

	got, err := h.client.GetRelationSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cli"}, got.ExcludedTags)

	techs, err := h.client.ListTechnologies(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "React"}, techs)
}

func TestRelationSettingsRequireToken(t *testing.T) {
	h := newHarness(t, "")
	_, err := h.client.GetRelationSettings(context.Background())
	assert.True(t, errs.IsMissingTokenError(err))
	assert.Empty(t, h.svc.seen())
}

func TestNewValidatesArguments(t *testing.T) {
	gate := auth.NewGate(nil)

	_, err := New("http://example.com/api", nil)
	assert.Error(t, err)
	_, err = New("/relative", gate)
	assert.Error(t, err)

	c, err := New("http://example.com/api", gate, WithTimeout(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/api/projects/7/", c.endpoint([]string{"projects", "7"}, nil))
}
