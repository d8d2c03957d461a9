package domain

// Task statuses.
const (
	TaskPending    = "pending"
	TaskInProgress = "in_progress"
	TaskDone       = "done"
)

// Feedback types.
const (
	FeedbackPositive   = "positive"
	FeedbackAdjustment = "adjustment"
	FeedbackAlignment  = "alignment"
)

type Member struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Role             string  `json:"role"`
	Active           bool    `json:"active"`
	LastFeedbackDate *string `json:"last_feedback_date,omitempty"`
}

type Task struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	AssigneeID string  `json:"assignee_id"`
	Deadline   string  `json:"deadline"`
	Status     string  `json:"status" enum:"pending,in_progress,done"`
	CreatedAt  string  `json:"created_at" format:"date-time"`
	MeetingID  *string `json:"meeting_id,omitempty"`
}

type Meeting struct {
	ID                  string `json:"id"`
	Date                string `json:"date"`
	Successes           string `json:"successes"`
	Blockers            string `json:"blockers"`
	Decisions           string `json:"decisions"`
	TasksGeneratedCount int    `json:"tasks_generated_count"`
}

type Feedback struct {
	ID       string `json:"id"`
	MemberID string `json:"member_id"`
	Type     string `json:"type" enum:"positive,adjustment,alignment"`
	Behavior string `json:"behavior"`
	Impact   string `json:"impact"`
	NextStep string `json:"next_step"`
	Date     string `json:"date" format:"date-time"`
}

// Lesson is a short didactic text tagged with a pillar key or "general".
type Lesson struct {
	ID     int    `json:"id" yaml:"id"`
	Pillar string `json:"pillar" yaml:"pillar" enum:"rhythm,responsibility,response,consistency,general"`
	Title  string `json:"title" yaml:"title"`
	Text   string `json:"text" yaml:"text"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// Snapshot is the full state the engines read from.
type Snapshot struct {
	Members   []Member   `json:"members"`
	Tasks     []Task     `json:"tasks"`
	Meetings  []Meeting  `json:"meetings"`
	Feedbacks []Feedback `json:"feedbacks"`
}

// ValidTaskStatus reports whether s is a known task status.
func ValidTaskStatus(s string) bool {
	switch s {
	case TaskPending, TaskInProgress, TaskDone:
		return true
	}
	return false
}
