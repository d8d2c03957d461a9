package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"lidereos/internal/coherence"
	"lidereos/internal/config"
	"lidereos/internal/db"
	"lidereos/internal/domain"
	"lidereos/internal/engine"
	"lidereos/internal/migrate"
	"lidereos/internal/recommend"
	"lidereos/internal/repo"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
}

func newTestEngine(t *testing.T) engine.Engine {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default("Time Teste"))
	e.Now = func() time.Time { return testNow }
	return e
}

func listen(t *testing.T, handler http.Handler) string {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	t.Cleanup(func() {
		srv.Shutdown(context.Background())
		ln.Close()
	})
	return "http://" + ln.Addr().String()
}

func newTestServer(t *testing.T, auth AuthConfig) *testServer {
	t.Helper()
	e := newTestEngine(t)
	auth.Now = e.Now
	handler, err := New(Config{Engine: e, BasePath: "/v0", Auth: auth})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	return &testServer{URL: listen(t, handler), Engine: e, client: &http.Client{}}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func (s *testServer) call(t *testing.T, method, path string, body any, wantStatus int, out any) []byte {
	t.Helper()
	res, data := doJSON(t, s.client, method, s.URL+path, body, nil)
	if res.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected %d, got %d: %s", method, path, wantStatus, res.StatusCode, string(data))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return data
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, data []byte) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode error envelope: %v (%s)", err, string(data))
	}
	return env
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, AuthConfig{})
	var out HealthResponse
	s.call(t, http.MethodGet, "/v0/health", nil, http.StatusOK, &out)
	if out.Status != "ok" || out.Team != "Time Teste" {
		t.Fatalf("unexpected health: %+v", out)
	}
}

func TestMemberAndTaskFlow(t *testing.T) {
	s := newTestServer(t, AuthConfig{})

	var m domain.Member
	s.call(t, http.MethodPost, "/v0/members", CreateMemberRequest{Name: "Ana Silva", Role: "Dev"}, http.StatusCreated, &m)
	if m.ID == "" || !m.Active {
		t.Fatalf("unexpected member: %+v", m)
	}

	var task domain.Task
	s.call(t, http.MethodPost, "/v0/tasks", CreateTaskRequest{Title: "Revisar API", AssigneeID: m.ID, Deadline: "2024-03-20"}, http.StatusCreated, &task)
	if task.Status != domain.TaskPending || task.CreatedAt != "2024-03-15T12:00:00Z" {
		t.Fatalf("unexpected task: %+v", task)
	}

	var pending TaskList
	s.call(t, http.MethodGet, "/v0/tasks?view=pending", nil, http.StatusOK, &pending)
	if len(pending.Items) != 1 {
		t.Fatalf("expected 1 pending task, got %d", len(pending.Items))
	}

	var done domain.Task
	s.call(t, http.MethodPatch, "/v0/tasks/"+task.ID+"/status", UpdateTaskStatusRequest{Status: domain.TaskDone}, http.StatusOK, &done)
	if done.Status != domain.TaskDone {
		t.Fatalf("expected done, got %s", done.Status)
	}
	s.call(t, http.MethodGet, "/v0/tasks?view=pending", nil, http.StatusOK, &pending)
	if len(pending.Items) != 0 {
		t.Fatalf("expected no pending tasks, got %d", len(pending.Items))
	}

	name := "Ana S."
	var updated domain.Member
	s.call(t, http.MethodPatch, "/v0/members/"+m.ID, UpdateMemberRequest{Name: &name}, http.StatusOK, &updated)
	if updated.Name != name || updated.Role != "Dev" {
		t.Fatalf("unexpected update: %+v", updated)
	}

	s.call(t, http.MethodDelete, "/v0/members/"+m.ID, nil, http.StatusNoContent, nil)
	var all TaskList
	s.call(t, http.MethodGet, "/v0/tasks", nil, http.StatusOK, &all)
	if len(all.Items) != 1 || all.Items[0].AssigneeID != m.ID {
		t.Fatalf("task should keep its assignee reference: %+v", all.Items)
	}
}

func TestMeetingCreatesTasks(t *testing.T) {
	s := newTestServer(t, AuthConfig{})
	var m domain.Member
	s.call(t, http.MethodPost, "/v0/members", CreateMemberRequest{Name: "Carlos"}, http.StatusCreated, &m)

	var rec engine.MeetingRecord
	s.call(t, http.MethodPost, "/v0/meetings", CreateMeetingRequest{
		Date:      "2024-03-14",
		Successes: "Deploy",
		Tasks: []CreateTaskRequest{
			{Title: "Ajustar alertas", AssigneeID: m.ID, Deadline: "2024-03-18"},
			{Title: "Documentar", AssigneeID: m.ID, Deadline: "2024-03-19"},
		},
	}, http.StatusCreated, &rec)
	if rec.Meeting.TasksGeneratedCount != 2 || len(rec.Tasks) != 2 {
		t.Fatalf("unexpected meeting record: %+v", rec)
	}

	var replaced domain.Meeting
	s.call(t, http.MethodPut, "/v0/meetings/"+rec.Meeting.ID, ReplaceMeetingRequest{Date: "2024-03-15", Decisions: "Manter"}, http.StatusOK, &replaced)
	if replaced.TasksGeneratedCount != 2 || replaced.Successes != "" || replaced.Decisions != "Manter" {
		t.Fatalf("unexpected replaced meeting: %+v", replaced)
	}

	var got engine.MeetingRecord
	s.call(t, http.MethodGet, "/v0/meetings/"+rec.Meeting.ID, nil, http.StatusOK, &got)
	if len(got.Tasks) != 2 {
		t.Fatalf("expected 2 tasks for meeting, got %d", len(got.Tasks))
	}

	var byMeeting TaskList
	s.call(t, http.MethodGet, "/v0/tasks?meeting_id="+rec.Meeting.ID, nil, http.StatusOK, &byMeeting)
	if len(byMeeting.Items) != 2 {
		t.Fatalf("expected 2 tasks filtered by meeting, got %d", len(byMeeting.Items))
	}
}

func TestFeedbackUpdatesMember(t *testing.T) {
	s := newTestServer(t, AuthConfig{})
	var m domain.Member
	s.call(t, http.MethodPost, "/v0/members", CreateMemberRequest{Name: "Beatriz"}, http.StatusCreated, &m)

	var f domain.Feedback
	s.call(t, http.MethodPost, "/v0/feedback", CreateFeedbackRequest{
		MemberID: m.ID,
		Type:     domain.FeedbackPositive,
		Behavior: "Conduziu a retro",
	}, http.StatusCreated, &f)

	var members MemberList
	s.call(t, http.MethodGet, "/v0/members", nil, http.StatusOK, &members)
	if members.Items[0].LastFeedbackDate == nil || *members.Items[0].LastFeedbackDate != f.Date {
		t.Fatalf("member feedback date not updated: %+v", members.Items[0])
	}

	var list FeedbackList
	s.call(t, http.MethodGet, "/v0/feedback?member_id="+m.ID, nil, http.StatusOK, &list)
	if len(list.Items) != 1 {
		t.Fatalf("expected 1 feedback, got %d", len(list.Items))
	}
}

func TestErrorEnvelopes(t *testing.T) {
	s := newTestServer(t, AuthConfig{})
	var m domain.Member
	s.call(t, http.MethodPost, "/v0/members", CreateMemberRequest{Name: "Ana"}, http.StatusCreated, &m)

	data := s.call(t, http.MethodPost, "/v0/tasks", CreateTaskRequest{Title: "X", AssigneeID: m.ID, Deadline: "amanhã"}, http.StatusUnprocessableEntity, nil)
	env := decodeError(t, data)
	if env.Error.Code != "validation_failed" || env.Error.Details["field"] != "deadline" {
		t.Fatalf("unexpected validation envelope: %+v", env)
	}

	data = s.call(t, http.MethodPost, "/v0/tasks", CreateTaskRequest{Title: "X", AssigneeID: "ghost", Deadline: "2024-03-20"}, http.StatusUnprocessableEntity, nil)
	if env := decodeError(t, data); env.Error.Details["field"] != "assignee_id" {
		t.Fatalf("expected assignee_id error, got %+v", env)
	}

	data = s.call(t, http.MethodPatch, "/v0/tasks/missing/status", UpdateTaskStatusRequest{Status: domain.TaskDone}, http.StatusNotFound, nil)
	if env := decodeError(t, data); env.Error.Code != "not_found" {
		t.Fatalf("unexpected not found envelope: %+v", env)
	}

	data = s.call(t, http.MethodPatch, "/v0/tasks/missing/status", map[string]string{"status": "blocked"}, http.StatusBadRequest, nil)
	if env := decodeError(t, data); env.Error.Code != "bad_request" {
		t.Fatalf("unexpected schema envelope: %+v", env)
	}

	s.call(t, http.MethodDelete, "/v0/meetings/missing", nil, http.StatusNotFound, nil)
}

func TestCoherenceOnEmptyStore(t *testing.T) {
	s := newTestServer(t, AuthConfig{})
	var report coherence.Report
	s.call(t, http.MethodGet, "/v0/coherence", nil, http.StatusOK, &report)
	if report.Overall != coherence.LevelMedium {
		t.Fatalf("expected MÉDIO, got %s", report.Overall)
	}
	if report.Pillars.Rhythm.Status != coherence.StatusCritical || report.Pillars.Consistency.Status != coherence.StatusAttention {
		t.Fatalf("unexpected pillars: %+v", report.Pillars)
	}
	if report.WorstPillar != coherence.Rhythm {
		t.Fatalf("expected rhythm as worst pillar, got %s", report.WorstPillar)
	}
}

func TestRecommendationDismissAndReset(t *testing.T) {
	s := newTestServer(t, AuthConfig{})

	var rec recommend.Recommendation
	s.call(t, http.MethodGet, "/v0/recommendation", nil, http.StatusOK, &rec)
	if rec.ID != recommend.MeetingMissingID {
		t.Fatalf("expected meeting gap first, got %s", rec.ID)
	}

	var act engine.ActResult
	s.call(t, http.MethodPost, "/v0/recommendation/act", RecommendationRequest{ID: rec.ID}, http.StatusOK, &act)
	if act.Dismissed || act.Target != recommend.TargetNewMeeting {
		t.Fatalf("navigating action should not dismiss: %+v", act)
	}

	var next recommend.Recommendation
	s.call(t, http.MethodPost, "/v0/recommendation/dismiss", RecommendationRequest{ID: rec.ID}, http.StatusOK, &next)
	if next.ID != recommend.GrowthModeID {
		t.Fatalf("expected growth mode after dismiss, got %s", next.ID)
	}

	var reset DismissalsResponse
	s.call(t, http.MethodDelete, "/v0/recommendation/dismissals", nil, http.StatusOK, &reset)
	if reset.Removed != 1 {
		t.Fatalf("expected 1 dismissal removed, got %d", reset.Removed)
	}
	s.call(t, http.MethodGet, "/v0/recommendation", nil, http.StatusOK, &rec)
	if rec.ID != recommend.MeetingMissingID {
		t.Fatalf("expected meeting gap after reset, got %s", rec.ID)
	}
}

func TestOrientationAlertsAndDashboard(t *testing.T) {
	s := newTestServer(t, AuthConfig{})
	var m domain.Member
	s.call(t, http.MethodPost, "/v0/members", CreateMemberRequest{Name: "Ana"}, http.StatusCreated, &m)

	var o struct {
		WorstPillar string         `json:"worst_pillar_key"`
		Lesson      *domain.Lesson `json:"lesson"`
		Checklist   []string       `json:"checklist"`
	}
	s.call(t, http.MethodGet, "/v0/orientation", nil, http.StatusOK, &o)
	if o.WorstPillar != string(coherence.Rhythm) || o.Lesson == nil || o.Lesson.Pillar != string(coherence.Rhythm) || len(o.Checklist) == 0 {
		t.Fatalf("unexpected orientation: %+v", o)
	}

	var a recommend.Alerts
	s.call(t, http.MethodGet, "/v0/alerts", nil, http.StatusOK, &a)
	if a.MembersNeedingFeedback != 1 || !a.MeetingOverdue || a.DaysSinceMeeting != 99 {
		t.Fatalf("unexpected alerts: %+v", a)
	}

	var d engine.Dashboard
	s.call(t, http.MethodGet, "/v0/dashboard", nil, http.StatusOK, &d)
	if d.Recommendation.ID != "member-"+m.ID || d.Alerts != a {
		t.Fatalf("unexpected dashboard: %+v", d)
	}
}

func TestEventsPagination(t *testing.T) {
	s := newTestServer(t, AuthConfig{})
	for _, name := range []string{"Ana", "Carlos", "Beatriz"} {
		s.call(t, http.MethodPost, "/v0/members", CreateMemberRequest{Name: name}, http.StatusCreated, nil)
	}
	var page paginatedEvents
	s.call(t, http.MethodGet, "/v0/events?limit=2", nil, http.StatusOK, &page)
	if len(page.Items) != 2 || page.NextCursor == "" {
		t.Fatalf("unexpected first page: %+v", page)
	}
	if page.Items[0].Payload["name"] != "Beatriz" || page.Items[0].ActorID != "local-user" {
		t.Fatalf("expected newest event first: %+v", page.Items[0])
	}
	var rest paginatedEvents
	s.call(t, http.MethodGet, "/v0/events?limit=2&cursor="+page.NextCursor, nil, http.StatusOK, &rest)
	if len(rest.Items) != 1 || rest.NextCursor != "" {
		t.Fatalf("unexpected second page: %+v", rest)
	}
	s.call(t, http.MethodGet, "/v0/events?cursor=abc", nil, http.StatusBadRequest, nil)
}

func TestJWTRequiredWhenSecretConfigured(t *testing.T) {
	s := newTestServer(t, AuthConfig{JWTSecret: "segredo"})

	s.call(t, http.MethodGet, "/v0/health", nil, http.StatusOK, nil)
	data := s.call(t, http.MethodGet, "/v0/members", nil, http.StatusUnauthorized, nil)
	if env := decodeError(t, data); env.Error.Code != "unauthorized" {
		t.Fatalf("unexpected auth envelope: %+v", env)
	}

	var login LoginResponse
	s.call(t, http.MethodPost, "/v0/auth/login", LoginRequest{Email: "Lider@Empresa.com", Password: "x"}, http.StatusOK, &login)
	if login.Token == "" || !login.AuthRequired || login.ActorID != "lider@empresa.com" {
		t.Fatalf("unexpected login response: %+v", login)
	}

	headers := map[string]string{"Authorization": "Bearer " + login.Token}
	res, body := doJSON(t, s.client, http.MethodPost, s.URL+"/v0/members", CreateMemberRequest{Name: "Ana"}, headers)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 with token, got %d: %s", res.StatusCode, string(body))
	}
	events, err := s.Engine.EventLog(context.Background(), repo.EventFilter{})
	if err != nil {
		t.Fatalf("event log: %v", err)
	}
	if events[0].ActorID != "lider@empresa.com" {
		t.Fatalf("expected token subject as actor, got %s", events[0].ActorID)
	}

	res, _ = doJSON(t, s.client, http.MethodGet, s.URL+"/v0/members", nil, map[string]string{"Authorization": "Bearer nope"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", res.StatusCode)
	}
}

func TestLoginWithoutSecret(t *testing.T) {
	s := newTestServer(t, AuthConfig{})
	var login LoginResponse
	s.call(t, http.MethodPost, "/v0/auth/login", LoginRequest{Email: "a@b.com"}, http.StatusOK, &login)
	if login.Token != "" || login.AuthRequired || login.ActorID != "local-user" {
		t.Fatalf("unexpected login response: %+v", login)
	}
}

func TestMetricsAndOpenAPI(t *testing.T) {
	s := newTestServer(t, AuthConfig{})
	s.call(t, http.MethodGet, "/v0/members", nil, http.StatusOK, nil)

	res, data := doJSON(t, s.client, http.MethodGet, s.URL+"/metrics", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("metrics status %d", res.StatusCode)
	}
	if !strings.Contains(string(data), `lidere_http_requests_total{method="GET",route="/v0/members",status="200"} 1`) {
		t.Fatalf("request counter missing:\n%s", string(data))
	}

	var oas map[string]any
	s.call(t, http.MethodGet, "/v0/openapi.json", nil, http.StatusOK, &oas)
	paths, _ := oas["paths"].(map[string]any)
	if _, ok := paths["/v0/recommendation/dismiss"]; !ok {
		t.Fatalf("openapi missing dismiss route")
	}
	res, data = doJSON(t, s.client, http.MethodGet, s.URL+"/docs", nil, nil)
	if res.StatusCode != http.StatusOK || !strings.Contains(string(data), "/v0/openapi.json") {
		t.Fatalf("docs page should reference the openapi url")
	}
}

func TestCORSAllowedOrigin(t *testing.T) {
	e := newTestEngine(t)
	handler, err := New(Config{Engine: e, CORSOrigins: []string{"http://localhost:5173"}})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	url := listen(t, handler)
	req, _ := http.NewRequest(http.MethodOptions, url+"/v0/members", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	res.Body.Close()
	if got := res.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}
