package model

type QuizQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
}

const QuizOptionCount = 4

// Valid reports whether the question has exactly four options and an answer
// index pointing at one of them.
func (q QuizQuestion) Valid() bool {
	if q.Question == "" || len(q.Options) != QuizOptionCount {
		return false
	}
	for _, o := range q.Options {
		if o == "" {
			return false
		}
	}
	return q.CorrectIndex >= 0 && q.CorrectIndex < QuizOptionCount
}

// QuizResult is the outcome of answering the outstanding question. Reward is
// what was actually credited, zero when the answer was wrong or the session
// ended before the credit landed.
type QuizResult struct {
	Correct      bool  `json:"correct"`
	CorrectIndex int   `json:"correctIndex"`
	Reward       int64 `json:"reward"`
}
