package service

import (
	"context"

	"microearn/internal/model"
)

var DefaultTasks = []model.Task{
	{
		ID:          "daily-checkin",
		Title:       "Daily Check-in",
		Description: "Open the app every day and claim your bonus",
		Reward:      CheckInReward,
		Type:        model.TaskDailyCheckIn,
		Icon:        "calendar",
		CTA:         "Claim",
		Color:       "emerald",
	},
	{
		ID:          "ai-quiz",
		Title:       "AI Trivia Quiz",
		Description: "Answer a trivia question correctly",
		Reward:      QuizReward,
		Type:        model.TaskAIQuiz,
		Icon:        "brain",
		CTA:         "Play",
		Color:       "purple",
	},
	{
		ID:          "watch-ad",
		Title:       "Watch Ads",
		Description: "Watch a short video ad till the end",
		Reward:      2,
		Type:        model.TaskVideo,
		Icon:        "play",
		CTA:         "Watch",
		Color:       "rose",
		DailyLimit:  10,
	},
	{
		ID:          "quick-survey",
		Title:       "Quick Survey",
		Description: "Share your opinion in a two minute survey",
		Reward:      15,
		Type:        model.TaskSurvey,
		Icon:        "clipboard",
		CTA:         "Start",
		Color:       "blue",
		DailyLimit:  1,
	},
}

type TaskService struct {
	ledger Ledger
	tasks  []model.Task
}

func NewTaskService(ledger Ledger, tasks []model.Task) *TaskService {
	if tasks == nil {
		tasks = DefaultTasks
	}
	return &TaskService{
		ledger: ledger,
		tasks:  tasks,
	}
}

func (s *TaskService) ListTasks() []model.Task {
	out := make([]model.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// CompleteTask credits a survey or video task, or runs the check-in for the
// daily task. The boolean is false when the check-in was already claimed or
// the task's daily limit is used up.
func (s *TaskService) CompleteTask(ctx context.Context, userID, taskID string) (*model.Task, bool, error) {
	var task *model.Task
	for _, t := range s.tasks {
		if t.ID == taskID {
			task = &t
			break
		}
	}
	if task == nil {
		return nil, false, ErrTaskNotFound
	}

	if _, err := s.ledger.Session(ctx, userID); err != nil {
		return nil, false, err
	}

	switch task.Type {
	case model.TaskDailyCheckIn:
		ok, err := s.ledger.CheckIn(ctx, userID)
		if err != nil {
			return nil, false, err
		}
		return task, ok, nil
	case model.TaskSurvey, model.TaskVideo:
		ok, err := s.ledger.ClaimTaskReward(ctx, userID, *task)
		if err != nil {
			return nil, false, err
		}
		return task, ok, nil
	default:
		return nil, false, ErrTaskNotCompletable
	}
}
