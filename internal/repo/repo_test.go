package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"lidereos/internal/db"
	"lidereos/internal/domain"
	"lidereos/internal/migrate"
)

func setupRepo(t *testing.T) Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return Repo{DB: conn}
}

func TestMembersKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	r := setupRepo(t)
	for _, id := range []string{"z", "a", "m"} {
		if err := r.InsertMember(ctx, nil, domain.Member{ID: id, Name: "n" + id, Active: true}); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	members, err := r.ListMembers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(members) != 3 || members[0].ID != "z" || members[1].ID != "a" || members[2].ID != "m" {
		t.Fatalf("unexpected order: %+v", members)
	}
	if !members[0].Active || members[0].LastFeedbackDate != nil {
		t.Fatalf("unexpected member: %+v", members[0])
	}
	if err := r.SetLastFeedbackDate(ctx, nil, "a", "2024-03-01T10:00:00Z"); err != nil {
		t.Fatalf("set feedback date: %v", err)
	}
	m, err := r.GetMember(ctx, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if m.LastFeedbackDate == nil || *m.LastFeedbackDate != "2024-03-01T10:00:00Z" {
		t.Fatalf("feedback date not stored: %+v", m)
	}
}

func TestNotFound(t *testing.T) {
	ctx := context.Background()
	r := setupRepo(t)
	if _, err := r.GetMember(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := r.UpdateTaskStatus(ctx, nil, "nope", domain.TaskDone); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := r.DeleteMeeting(ctx, nil, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTaskViews(t *testing.T) {
	ctx := context.Background()
	r := setupRepo(t)
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	tasks := []domain.Task{
		{ID: "late", Title: "late", AssigneeID: "a", Deadline: "2024-03-10", Status: domain.TaskPending, CreatedAt: "2024-03-01"},
		{ID: "soon", Title: "soon", AssigneeID: "a", Deadline: "2024-03-20T09:00:00Z", Status: domain.TaskInProgress, CreatedAt: "2024-03-01"},
		{ID: "done", Title: "done", AssigneeID: "b", Deadline: "2024-03-01", Status: domain.TaskDone, CreatedAt: "2024-02-20"},
		{ID: "later", Title: "later", AssigneeID: "b", Deadline: "2024-03-12", Status: domain.TaskPending, CreatedAt: "2024-03-02"},
	}
	for _, task := range tasks {
		if err := r.InsertTask(ctx, nil, task); err != nil {
			t.Fatalf("insert task: %v", err)
		}
	}

	ids := func(ts []domain.Task) []string {
		var out []string
		for _, t := range ts {
			out = append(out, t.ID)
		}
		return out
	}
	cases := []struct {
		filter TaskFilter
		want   []string
	}{
		{TaskFilter{}, []string{"late", "soon", "done", "later"}},
		{TaskFilter{View: TaskViewAll}, []string{"done", "late", "later", "soon"}},
		{TaskFilter{View: TaskViewPending}, []string{"late", "later", "soon"}},
		{TaskFilter{View: TaskViewDelayed, Now: now}, []string{"late", "later"}},
		{TaskFilter{View: TaskViewAll, AssigneeID: "b"}, []string{"done", "later"}},
	}
	for _, tc := range cases {
		got, err := r.ListTasks(ctx, tc.filter)
		if err != nil {
			t.Fatalf("list %+v: %v", tc.filter, err)
		}
		if g := ids(got); !equal(g, tc.want) {
			t.Fatalf("filter %+v: got %v want %v", tc.filter, g, tc.want)
		}
	}

	_, err := r.ListTasks(ctx, TaskFilter{View: "urgent"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "view" {
		t.Fatalf("expected view validation error, got %v", err)
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMeetingReplaceKeepsCount(t *testing.T) {
	ctx := context.Background()
	r := setupRepo(t)
	m := domain.Meeting{ID: "m1", Date: "2024-03-01", Successes: "s", TasksGeneratedCount: 2}
	if err := r.InsertMeeting(ctx, nil, m); err != nil {
		t.Fatalf("insert: %v", err)
	}
	m.Decisions = "trocar fornecedor"
	m.TasksGeneratedCount = 9
	if err := r.ReplaceMeeting(ctx, nil, m); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err := r.GetMeeting(ctx, "m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Decisions != "trocar fornecedor" || got.TasksGeneratedCount != 2 {
		t.Fatalf("unexpected meeting: %+v", got)
	}
}

func TestDismissals(t *testing.T) {
	ctx := context.Background()
	r := setupRepo(t)
	for _, id := range []string{"task-1", "member-2", "task-1"} {
		if err := r.InsertDismissal(ctx, nil, "ana", id, "2024-03-01T00:00:00Z"); err != nil {
			t.Fatalf("dismiss: %v", err)
		}
	}
	if err := r.InsertDismissal(ctx, nil, "bia", "growth-mode", "2024-03-01T00:00:00Z"); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	got, err := r.ListDismissals(ctx, "ana")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !equal(got, []string{"task-1", "member-2"}) {
		t.Fatalf("unexpected dismissals: %v", got)
	}
	n, err := r.DeleteDismissals(ctx, nil, "ana")
	if err != nil || n != 2 {
		t.Fatalf("delete: n=%d err=%v", n, err)
	}
	got, _ = r.ListDismissals(ctx, "bia")
	if len(got) != 1 {
		t.Fatalf("other actor affected: %v", got)
	}
}

func TestSnapshotAndEmpty(t *testing.T) {
	ctx := context.Background()
	r := setupRepo(t)
	empty, err := r.IsEmpty(ctx)
	if err != nil || !empty {
		t.Fatalf("expected empty store, got %v %v", empty, err)
	}
	s, err := r.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if s.Members == nil || s.Tasks == nil || s.Meetings == nil || s.Feedbacks == nil {
		t.Fatalf("snapshot collections should be empty slices: %+v", s)
	}
	if err := r.InsertFeedback(ctx, nil, domain.Feedback{ID: "f", MemberID: "ghost", Type: domain.FeedbackPositive, Date: "2024-03-01"}); err != nil {
		t.Fatalf("insert feedback: %v", err)
	}
	s, err = r.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(s.Feedbacks) != 1 || s.Feedbacks[0].MemberID != "ghost" {
		t.Fatalf("unexpected feedbacks: %+v", s.Feedbacks)
	}
}
