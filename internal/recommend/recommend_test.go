package recommend

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"lidereos/internal/domain"
)

var now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) string {
	return domain.FormatTimestamp(now.Add(-time.Duration(n) * 24 * time.Hour))
}

func ptr(s string) *string { return &s }

func member(id, name string, feedbackDaysAgo int) domain.Member {
	m := domain.Member{ID: id, Name: name, Role: "Dev", Active: true}
	if feedbackDaysAgo >= 0 {
		m.LastFeedbackDate = ptr(daysAgo(feedbackDaysAgo))
	}
	return m
}

func task(id, status string, createdDaysAgo, deadlineDaysAgo int) domain.Task {
	return domain.Task{
		ID:         id,
		Title:      "task " + id,
		AssigneeID: "1",
		Status:     status,
		CreatedAt:  daysAgo(createdDaysAgo),
		Deadline:   daysAgo(deadlineDaysAgo),
	}
}

func recentMeeting() []domain.Meeting {
	return []domain.Meeting{{ID: "m1", Date: daysAgo(10), TasksGeneratedCount: 1}}
}

func mustSelect(t *testing.T, members []domain.Member, tasks []domain.Task, meetings []domain.Meeting, dismissed Set) Recommendation {
	t.Helper()
	r, err := Select(members, tasks, meetings, now, dismissed)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	return r
}

func TestSelectFeedbackGapForAna(t *testing.T) {
	members := []domain.Member{member("ana", "Ana", 25), member("bia", "Bia", 5)}
	tasks := []domain.Task{task("t1", domain.TaskPending, 2, -3)}

	r := mustSelect(t, members, tasks, recentMeeting(), nil)
	if r.Category != CategoryFeedbackGap || r.ID != "member-ana" {
		t.Fatalf("unexpected recommendation: %+v", r)
	}
	if r.Text != "Faz tempo que Ana não recebe um feedback formal. O silêncio cria insegurança." {
		t.Fatalf("unexpected text: %q", r.Text)
	}
	if r.Primary.Target != TargetFeedback {
		t.Fatalf("primary target = %q", r.Primary.Target)
	}
}

// With no meetings the gap counts as 99 days, so an empty store asks for a
// meeting before it ever reaches growth mode.
func TestSelectEmptyStoreAsksForMeeting(t *testing.T) {
	r := mustSelect(t, nil, nil, nil, NewSet())
	if r.ID != MeetingMissingID || r.Category != CategoryMeetingGap {
		t.Fatalf("expected meeting gap, got %+v", r)
	}
	if r.Primary.Target != TargetNewMeeting {
		t.Fatalf("primary target = %q", r.Primary.Target)
	}
}

func TestSelectEmptyStoreFallsBackToGrowthMode(t *testing.T) {
	cases := []struct {
		name      string
		meetings  []domain.Meeting
		dismissed Set
	}{
		{"meeting gap dismissed", nil, NewSet(MeetingMissingID)},
		{"recent meeting", recentMeeting(), NewSet()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := mustSelect(t, nil, nil, tc.meetings, tc.dismissed)
			if r.ID != GrowthModeID || r.Category != CategoryGrowth {
				t.Fatalf("expected growth mode, got %+v", r)
			}
		})
	}
}

func TestSelectEmptyMembersAndTasksFlagsMeetingGap(t *testing.T) {
	r := mustSelect(t, []domain.Member{member("a", "Ana", 1)}, nil, nil, nil)
	if r.ID != MeetingMissingID || r.Primary.Target != TargetNewMeeting {
		t.Fatalf("expected meeting gap, got %+v", r)
	}
}

func TestSelectIdempotent(t *testing.T) {
	members := []domain.Member{member("a", "Ana", -1)}
	tasks := []domain.Task{task("t1", domain.TaskPending, 9, 1), task("t2", domain.TaskDone, 3, 2)}
	dismissed := NewSet("task-t1")

	first := mustSelect(t, members, tasks, nil, dismissed)
	for i := 0; i < 3; i++ {
		if again := mustSelect(t, members, tasks, nil, dismissed); again != first {
			t.Fatalf("run %d differs: %+v vs %+v", i, again, first)
		}
	}
	if len(dismissed) != 1 {
		t.Fatalf("dismissed set was modified: %v", dismissed)
	}
}

func TestStaleTaskThreshold(t *testing.T) {
	cases := []struct {
		name    string
		created time.Time
		status  string
		stale   bool
	}{
		{"eight days pending", now.Add(-8 * 24 * time.Hour), domain.TaskPending, true},
		{"just over seven days", now.Add(-7*24*time.Hour - time.Minute), domain.TaskPending, true},
		{"exactly seven days", now.Add(-7 * 24 * time.Hour), domain.TaskPending, false},
		{"six days", now.Add(-6 * 24 * time.Hour), domain.TaskPending, false},
		{"old but in progress", now.Add(-30 * 24 * time.Hour), domain.TaskInProgress, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tasks := []domain.Task{{
				ID:        "x",
				Title:     "Relatório",
				Status:    tc.status,
				CreatedAt: domain.FormatTimestamp(tc.created),
				Deadline:  daysAgo(-5),
			}}
			r := mustSelect(t, nil, tasks, recentMeeting(), nil)
			if !tc.stale {
				if r.Category == CategoryStaleTask {
					t.Fatalf("unexpected stale task: %+v", r)
				}
				return
			}
			if r.ID != "task-x" {
				t.Fatalf("expected task-x, got %+v", r)
			}
			if r.Text != "A tarefa \"Relatório\" está parada. Ela ainda é uma prioridade ou pode ser eliminada?" {
				t.Fatalf("unexpected text: %q", r.Text)
			}
		})
	}
}

func TestSelectDismissalChain(t *testing.T) {
	members := []domain.Member{member("a", "Ana", 30)}
	tasks := []domain.Task{
		task("t1", domain.TaskPending, 10, -1),
		task("t2", domain.TaskPending, 12, -1),
		task("d1", domain.TaskDone, 5, 4),
	}
	dismissed := NewSet()
	var got []string
	for i := 0; i < 6; i++ {
		r := mustSelect(t, members, tasks, nil, dismissed)
		got = append(got, r.ID)
		dismissed[r.ID] = struct{}{}
	}
	want := []string{"task-t1", "task-t2", "member-a", MeetingMissingID, "done-d1", GrowthModeID}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("chain = %v, want %v", got, want)
	}
}

func TestGrowthModeReturnedWhenDismissed(t *testing.T) {
	if r := mustSelect(t, nil, nil, recentMeeting(), NewSet(GrowthModeID)); r.ID != GrowthModeID {
		t.Fatalf("expected growth mode, got %+v", r)
	}
}

func TestReflectionUsesLatestDeadlineOnly(t *testing.T) {
	tasks := []domain.Task{
		task("old", domain.TaskDone, 6, 5),
		task("new", domain.TaskDone, 6, 1),
	}
	r := mustSelect(t, nil, tasks, recentMeeting(), nil)
	if r.ID != "done-new" || r.Navigates() {
		t.Fatalf("expected non-navigating done-new, got %+v", r)
	}

	if r := mustSelect(t, nil, tasks, recentMeeting(), NewSet("done-new")); r.ID != GrowthModeID {
		t.Fatalf("expected growth mode after dismissing reflection, got %+v", r)
	}
}

func TestMeetingGapBoundary(t *testing.T) {
	for _, tc := range []struct {
		days int
		want string
	}{
		{14, GrowthModeID},
		{15, MeetingMissingID},
	} {
		meetings := []domain.Meeting{{ID: "m", Date: daysAgo(tc.days)}}
		if r := mustSelect(t, nil, nil, meetings, nil); r.ID != tc.want {
			t.Fatalf("days=%d: got %s, want %s", tc.days, r.ID, tc.want)
		}
	}
}

func TestFeedbackGapBoundary(t *testing.T) {
	if r := mustSelect(t, []domain.Member{member("a", "Ana", 21)}, nil, recentMeeting(), nil); r.ID != GrowthModeID {
		t.Fatalf("21 days: got %s", r.ID)
	}
	if r := mustSelect(t, []domain.Member{member("a", "Ana", 22)}, nil, recentMeeting(), nil); r.ID != "member-a" {
		t.Fatalf("22 days: got %s", r.ID)
	}
}

func TestSelectRejectsBadTimestamp(t *testing.T) {
	members := []domain.Member{{ID: "a", Name: "Ana", LastFeedbackDate: ptr("ontem")}}
	_, err := Select(members, nil, nil, now, nil)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "members[0].last_feedback_date" {
		t.Fatalf("expected validation error on last_feedback_date, got %v", err)
	}
}

func TestComputeAlerts(t *testing.T) {
	members := []domain.Member{member("a", "Ana", 30), member("b", "Bia", 2), member("c", "Caio", -1)}
	tasks := []domain.Task{
		task("t1", domain.TaskPending, 10, -1),
		task("t2", domain.TaskPending, 3, -1),
		task("t3", domain.TaskDone, 20, 5),
	}
	meetings := []domain.Meeting{{ID: "m", Date: daysAgo(16)}}

	a, err := ComputeAlerts(members, tasks, meetings, now)
	if err != nil {
		t.Fatalf("alerts: %v", err)
	}
	want := Alerts{
		StaleTasks:             1,
		MembersNeedingFeedback: 2,
		DaysSinceMeeting:       16,
		MeetingOverdue:         true,
	}
	if a != want {
		t.Fatalf("alerts = %+v, want %+v", a, want)
	}
}

func TestComputeAlertsNoMeetings(t *testing.T) {
	a, err := ComputeAlerts(nil, nil, nil, now)
	if err != nil {
		t.Fatalf("alerts: %v", err)
	}
	if a.DaysSinceMeeting != 99 || !a.MeetingOverdue {
		t.Fatalf("unexpected alerts: %+v", a)
	}
}
