package model

type TaskType string

const (
	TaskDailyCheckIn TaskType = "DAILY_CHECKIN"
	TaskSurvey       TaskType = "SURVEY"
	TaskVideo        TaskType = "VIDEO"
	TaskAIQuiz       TaskType = "AI_QUIZ"
)

type Task struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Reward      int64    `json:"reward"`
	Type        TaskType `json:"type"`
	Icon        string   `json:"icon"`
	CTA         string   `json:"cta"`
	Color       string   `json:"color"`
	// DailyLimit caps rewarded completions per user per day. Zero means no cap.
	DailyLimit  int      `json:"dailyLimit,omitempty"`
}
