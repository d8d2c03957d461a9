package recommend

import (
	"time"

	"lidereos/internal/domain"
)

// Alerts are the raw counters shown next to the recommendation card. They use
// the same thresholds as the recommendation rules.
type Alerts struct {
	StaleTasks             int  `json:"stale_tasks"`
	MembersNeedingFeedback int  `json:"members_needing_feedback"`
	DaysSinceMeeting       int  `json:"days_since_meeting"`
	MeetingOverdue         bool `json:"meeting_overdue"`
}

func ComputeAlerts(members []domain.Member, tasks []domain.Task, meetings []domain.Meeting, now time.Time) (Alerts, error) {
	in, err := newInput(members, tasks, meetings, now)
	if err != nil {
		return Alerts{}, err
	}
	return Alerts{
		StaleTasks:             len(staleTasks(in)),
		MembersNeedingFeedback: len(feedbackGaps(in)),
		DaysSinceMeeting:       in.daysSinceMeeting,
		MeetingOverdue:         len(meetingGap(in)) > 0,
	}, nil
}
