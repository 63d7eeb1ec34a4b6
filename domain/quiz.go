package domain

import "math"

// QuizPassScore is the minimum percentage required to pass a quiz.
const QuizPassScore = 70

// QuizQuestion is a single multiple-choice question attached to a quiz task.
// Questions are generated once and never mutated afterwards.
type QuizQuestion struct {
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
}

// QuizResult is the outcome of scoring one quiz attempt.
type QuizResult struct {
	Correct int  `json:"correct"`
	Total   int  `json:"total"`
	Score   int  `json:"score"`
	Passed  bool `json:"passed"`
}

// ScoreQuiz grades submitted answer indices against the question set.
// Missing answers count as incorrect; the caller is responsible for
// rejecting empty question sets and out-of-range indices beforehand.
func ScoreQuiz(questions []QuizQuestion, answers []int) QuizResult {
	total := len(questions)
	if total == 0 {
		return QuizResult{}
	}

	correct := 0
	for i, q := range questions {
		if i < len(answers) && answers[i] == q.CorrectOption {
			correct++
		}
	}

	score := int(math.Round(float64(correct) / float64(total) * 100))
	return QuizResult{
		Correct: correct,
		Total:   total,
		Score:   score,
		Passed:  score >= QuizPassScore,
	}
}
