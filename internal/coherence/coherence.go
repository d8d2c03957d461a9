// Package coherence derives the four-pillar leadership health report from the
// current team records.
package coherence

import (
	"fmt"
	"time"

	"lidereos/internal/domain"
)

type Status string

const (
	StatusOK        Status = "OK"
	StatusAttention Status = "ATENÇÃO"
	StatusCritical  Status = "CRÍTICO"
)

type Level string

const (
	LevelLow    Level = "BAIXO"
	LevelMedium Level = "MÉDIO"
	LevelHigh   Level = "ALTO"
)

// PillarKey identifies one of the four pillars. The empty key means none.
type PillarKey string

const (
	Rhythm         PillarKey = "rhythm"
	Responsibility PillarKey = "responsibility"
	Response       PillarKey = "response"
	Consistency    PillarKey = "consistency"
)

// Pillars lists the keys in display order.
var Pillars = []PillarKey{Rhythm, Responsibility, Response, Consistency}

const (
	rhythmCriticalDays  = 30
	rhythmAttentionDays = 14

	responsibilityCriticalRate  = 60.0
	responsibilityAttentionRate = 80.0

	responseStaleAge      = 14 * 24 * time.Hour
	responseCriticalCount = 3

	consistencyCriticalRate  = 50.0
	consistencyAttentionRate = 80.0
)

type PillarResult struct {
	Status      Status `json:"status" enum:"OK,ATENÇÃO,CRÍTICO"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

type PillarSet struct {
	Rhythm         PillarResult `json:"rhythm"`
	Responsibility PillarResult `json:"responsibility"`
	Response       PillarResult `json:"response"`
	Consistency    PillarResult `json:"consistency"`
}

// Get returns the result for key.
func (p PillarSet) Get(key PillarKey) PillarResult {
	switch key {
	case Rhythm:
		return p.Rhythm
	case Responsibility:
		return p.Responsibility
	case Response:
		return p.Response
	case Consistency:
		return p.Consistency
	}
	return PillarResult{}
}

type Report struct {
	Overall     Level     `json:"overall" enum:"BAIXO,MÉDIO,ALTO"`
	Pillars     PillarSet `json:"pillars"`
	WorstPillar PillarKey `json:"worst_pillar_key,omitempty"`
}

func pillarResult(key PillarKey, status Status) PillarResult {
	switch key {
	case Rhythm:
		return PillarResult{Status: status, Label: "Ritmo", Description: "Acompanhamento de reuniões e feedback."}
	case Responsibility:
		return PillarResult{Status: status, Label: "Responsabilidade", Description: "Tarefas entregues e com donos."}
	case Response:
		return PillarResult{Status: status, Label: "Resposta", Description: "Tratamento de itens travados."}
	default:
		return PillarResult{Status: status, Label: "Consistência", Description: "Reuniões que geram ação."}
	}
}

// Compute builds the report for the given collections as of now. Members are
// accepted for symmetry with the store but no pillar reads them. The only
// failure is an unparseable timestamp, reported as *domain.ValidationError.
func Compute(members []domain.Member, tasks []domain.Task, meetings []domain.Meeting, feedbacks []domain.Feedback, now time.Time) (Report, error) {
	lastMeeting, err := LastMeetingDate(meetings)
	if err != nil {
		return Report{}, err
	}
	lastFeedback, err := lastFeedbackDate(feedbacks)
	if err != nil {
		return Report{}, err
	}
	rhythm := RhythmStatus(domain.DaysSince(lastMeeting, now), domain.DaysSince(lastFeedback, now))

	rate, err := CompletionRate(tasks, now)
	if err != nil {
		return Report{}, err
	}
	responsibility := ResponsibilityStatus(rate)

	stale, err := StaleTaskCount(tasks, now)
	if err != nil {
		return Report{}, err
	}
	response := ResponseStatus(stale)

	consistency := ConsistencyStatus(meetings)

	statuses := map[PillarKey]Status{
		Rhythm:         rhythm,
		Responsibility: responsibility,
		Response:       response,
		Consistency:    consistency,
	}
	return Report{
		Overall: OverallLevel(rhythm, responsibility, response, consistency),
		Pillars: PillarSet{
			Rhythm:         pillarResult(Rhythm, rhythm),
			Responsibility: pillarResult(Responsibility, responsibility),
			Response:       pillarResult(Response, response),
			Consistency:    pillarResult(Consistency, consistency),
		},
		WorstPillar: WorstPillar(statuses),
	}, nil
}

// LastMeetingDate returns the latest meeting date, or the Unix epoch when
// there are no meetings.
func LastMeetingDate(meetings []domain.Meeting) (time.Time, error) {
	last := time.Unix(0, 0).UTC()
	for i, m := range meetings {
		t, err := domain.ParseTimestamp(fmt.Sprintf("meetings[%d].date", i), m.Date)
		if err != nil {
			return time.Time{}, err
		}
		if t.After(last) {
			last = t
		}
	}
	return last, nil
}

func lastFeedbackDate(feedbacks []domain.Feedback) (time.Time, error) {
	last := time.Unix(0, 0).UTC()
	for i, f := range feedbacks {
		t, err := domain.ParseTimestamp(fmt.Sprintf("feedbacks[%d].date", i), f.Date)
		if err != nil {
			return time.Time{}, err
		}
		if t.After(last) {
			last = t
		}
	}
	return last, nil
}

func RhythmStatus(daysSinceMeeting, daysSinceFeedback int) Status {
	switch {
	case daysSinceMeeting > rhythmCriticalDays || daysSinceFeedback > rhythmCriticalDays:
		return StatusCritical
	case daysSinceMeeting > rhythmAttentionDays || daysSinceFeedback > rhythmAttentionDays:
		return StatusAttention
	}
	return StatusOK
}

// CompletionRate is the percentage of tasks past their deadline that are done.
// With nothing due it is 100.
func CompletionRate(tasks []domain.Task, now time.Time) (float64, error) {
	var due, overdue int
	for i, t := range tasks {
		deadline, err := domain.ParseTimestamp(fmt.Sprintf("tasks[%d].deadline", i), t.Deadline)
		if err != nil {
			return 0, err
		}
		if !deadline.Before(now) {
			continue
		}
		due++
		if t.Status != domain.TaskDone {
			overdue++
		}
	}
	if due == 0 {
		return 100, nil
	}
	return 100 * float64(due-overdue) / float64(due), nil
}

func ResponsibilityStatus(rate float64) Status {
	switch {
	case rate < responsibilityCriticalRate:
		return StatusCritical
	case rate < responsibilityAttentionRate:
		return StatusAttention
	}
	return StatusOK
}

// StaleTaskCount counts pending tasks created more than 14 days before now.
func StaleTaskCount(tasks []domain.Task, now time.Time) (int, error) {
	n := 0
	for i, t := range tasks {
		created, err := domain.ParseTimestamp(fmt.Sprintf("tasks[%d].created_at", i), t.CreatedAt)
		if err != nil {
			return 0, err
		}
		if t.Status == domain.TaskPending && now.Sub(created) > responseStaleAge {
			n++
		}
	}
	return n, nil
}

func ResponseStatus(staleCount int) Status {
	switch {
	case staleCount > responseCriticalCount:
		return StatusCritical
	case staleCount > 0:
		return StatusAttention
	}
	return StatusOK
}

// ConsistencyStatus rates how many meetings produced follow-up tasks. No
// meetings is a warning, never OK.
func ConsistencyStatus(meetings []domain.Meeting) Status {
	if len(meetings) == 0 {
		return StatusAttention
	}
	withTasks := 0
	for _, m := range meetings {
		if m.TasksGeneratedCount > 0 {
			withTasks++
		}
	}
	rate := 100 * float64(withTasks) / float64(len(meetings))
	switch {
	case rate < consistencyCriticalRate:
		return StatusCritical
	case rate < consistencyAttentionRate:
		return StatusAttention
	}
	return StatusOK
}

func OverallLevel(statuses ...Status) Level {
	var critical, attention int
	for _, s := range statuses {
		switch s {
		case StatusCritical:
			critical++
		case StatusAttention:
			attention++
		}
	}
	switch {
	case critical >= 2:
		return LevelLow
	case critical == 1 || attention >= 2:
		return LevelMedium
	}
	return LevelHigh
}
