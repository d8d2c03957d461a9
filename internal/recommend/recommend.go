// Package recommend picks the single next action shown on the home screen.
package recommend

import (
	"fmt"
	"sort"
	"time"

	"lidereos/internal/coherence"
	"lidereos/internal/domain"
)

type Category string

const (
	CategoryStaleTask   Category = "stale_task"
	CategoryFeedbackGap Category = "feedback_gap"
	CategoryMeetingGap  Category = "meeting_gap"
	CategoryReflection  Category = "reflection"
	CategoryGrowth      Category = "growth"
)

const (
	// GrowthModeID is returned when nothing else applies, even if dismissed.
	GrowthModeID     = "growth-mode"
	MeetingMissingID = "meeting-missing"

	staleTaskAge     = 7 * 24 * time.Hour
	feedbackGapDays  = 21
	meetingGapDays   = 14
	noMeetingGapDays = 99
)

// Navigation targets.
const (
	TargetTasks      = "/tasks"
	TargetFeedback   = "/feedback"
	TargetNewMeeting = "/meeting/new"
)

// Action is a button on the recommendation card. An empty Target means the
// action only acknowledges the item and dismisses it.
type Action struct {
	Label  string `json:"label"`
	Target string `json:"target,omitempty"`
}

type Recommendation struct {
	ID        string   `json:"id"`
	Category  Category `json:"category" enum:"stale_task,feedback_gap,meeting_gap,reflection,growth"`
	Title     string   `json:"title"`
	Text      string   `json:"text"`
	Primary   Action   `json:"primary"`
	Secondary Action   `json:"secondary"`
}

// Navigates reports whether the primary action leads somewhere.
func (r Recommendation) Navigates() bool {
	return r.Primary.Target != ""
}

// Set holds dismissed recommendation ids. The caller owns it.
type Set map[string]struct{}

func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// input is the state a rule reads, with timestamps parsed once.
type input struct {
	members []domain.Member
	tasks   []domain.Task
	now     time.Time

	taskCreated      []time.Time
	taskDeadline     []time.Time
	memberFeedback   []*time.Time
	daysSinceMeeting int
}

// rule yields candidates in priority order. The first one not dismissed wins.
type rule func(in *input) []Recommendation

var rules = []rule{
	staleTasks,
	feedbackGaps,
	meetingGap,
	reflection,
}

// Select returns the highest-priority recommendation whose id is not in
// dismissed. It always returns one; growth mode is the terminal fallback.
func Select(members []domain.Member, tasks []domain.Task, meetings []domain.Meeting, now time.Time, dismissed Set) (Recommendation, error) {
	in, err := newInput(members, tasks, meetings, now)
	if err != nil {
		return Recommendation{}, err
	}
	for _, r := range rules {
		for _, c := range r(in) {
			if !dismissed.Has(c.ID) {
				return c, nil
			}
		}
	}
	return growthMode(), nil
}

func newInput(members []domain.Member, tasks []domain.Task, meetings []domain.Meeting, now time.Time) (*input, error) {
	in := &input{
		members:          members,
		tasks:            tasks,
		now:              now,
		taskCreated:      make([]time.Time, len(tasks)),
		taskDeadline:     make([]time.Time, len(tasks)),
		memberFeedback:   make([]*time.Time, len(members)),
		daysSinceMeeting: noMeetingGapDays,
	}
	for i, t := range tasks {
		created, err := domain.ParseTimestamp(fmt.Sprintf("tasks[%d].created_at", i), t.CreatedAt)
		if err != nil {
			return nil, err
		}
		deadline, err := domain.ParseTimestamp(fmt.Sprintf("tasks[%d].deadline", i), t.Deadline)
		if err != nil {
			return nil, err
		}
		in.taskCreated[i] = created
		in.taskDeadline[i] = deadline
	}
	for i, m := range members {
		if m.LastFeedbackDate == nil {
			continue
		}
		t, err := domain.ParseTimestamp(fmt.Sprintf("members[%d].last_feedback_date", i), *m.LastFeedbackDate)
		if err != nil {
			return nil, err
		}
		in.memberFeedback[i] = &t
	}
	if len(meetings) > 0 {
		last, err := coherence.LastMeetingDate(meetings)
		if err != nil {
			return nil, err
		}
		in.daysSinceMeeting = domain.DaysSince(last, now)
	}
	return in, nil
}

func staleTasks(in *input) []Recommendation {
	var out []Recommendation
	cutoff := in.now.Add(-staleTaskAge)
	for i, t := range in.tasks {
		if t.Status != domain.TaskPending || !in.taskCreated[i].Before(cutoff) {
			continue
		}
		out = append(out, Recommendation{
			ID:        "task-" + t.ID,
			Category:  CategoryStaleTask,
			Title:     "Desobstrução Necessária",
			Text:      fmt.Sprintf("A tarefa \"%s\" está parada. Ela ainda é uma prioridade ou pode ser eliminada?", t.Title),
			Primary:   Action{Label: "Resolver Tarefa", Target: TargetTasks},
			Secondary: Action{Label: "Manter por enquanto"},
		})
	}
	return out
}

func feedbackGaps(in *input) []Recommendation {
	var out []Recommendation
	for i, m := range in.members {
		last := in.memberFeedback[i]
		if last != nil && domain.DaysSince(*last, in.now) <= feedbackGapDays {
			continue
		}
		out = append(out, Recommendation{
			ID:        "member-" + m.ID,
			Category:  CategoryFeedbackGap,
			Title:     "Conexão Humana",
			Text:      fmt.Sprintf("Faz tempo que %s não recebe um feedback formal. O silêncio cria insegurança.", m.Name),
			Primary:   Action{Label: "Dar Feedback", Target: TargetFeedback},
			Secondary: Action{Label: "Mais tarde"},
		})
	}
	return out
}

func meetingGap(in *input) []Recommendation {
	if in.daysSinceMeeting <= meetingGapDays {
		return nil
	}
	return []Recommendation{{
		ID:        MeetingMissingID,
		Category:  CategoryMeetingGap,
		Title:     "Ritmo de Time",
		Text:      "O time pode estar perdendo o alinhamento. Que tal registrar uma reunião de ponto de controle?",
		Primary:   Action{Label: "Registrar Reunião", Target: TargetNewMeeting},
		Secondary: Action{Label: "Estamos bem"},
	}}
}

// reflection offers only the done task with the latest deadline. Once that one
// is dismissed no older done task takes its place.
func reflection(in *input) []Recommendation {
	idx := make([]int, 0, len(in.tasks))
	for i, t := range in.tasks {
		if t.Status == domain.TaskDone {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return nil
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return in.taskDeadline[idx[a]].After(in.taskDeadline[idx[b]])
	})
	t := in.tasks[idx[0]]
	return []Recommendation{{
		ID:        "done-" + t.ID,
		Category:  CategoryReflection,
		Title:     "Validação de Impacto",
		Text:      fmt.Sprintf("Você concluiu \"%s\". Sendo sincero: isso realmente moveu o ponteiro do negócio?", t.Title),
		Primary:   Action{Label: "Sim, foi útil"},
		Secondary: Action{Label: "Foi apenas ocupação"},
	}}
}

func growthMode() Recommendation {
	return Recommendation{
		ID:        GrowthModeID,
		Category:  CategoryGrowth,
		Title:     "Modo Ousadia",
		Text:      "A casa está em ordem! É o momento perfeito para criar uma meta ousada que assuste um pouco.",
		Primary:   Action{Label: "Criar Meta Ousada", Target: TargetTasks},
		Secondary: Action{Label: "Apenas manter"},
	}
}
