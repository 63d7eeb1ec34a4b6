package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func threeQuestions() []QuizQuestion {
	return []QuizQuestion{
		{Prompt: "q1", Options: []string{"a", "b", "c"}, CorrectOption: 0},
		{Prompt: "q2", Options: []string{"a", "b", "c"}, CorrectOption: 1},
		{Prompt: "q3", Options: []string{"a", "b", "c"}, CorrectOption: 2},
	}
}

func TestScoreQuiz_TwoOfThreeFails(t *testing.T) {
	result := ScoreQuiz(threeQuestions(), []int{0, 1, 0})

	assert.Equal(t, 2, result.Correct)
	assert.Equal(t, 67, result.Score)
	assert.False(t, result.Passed)
}

func TestScoreQuiz_PerfectScorePasses(t *testing.T) {
	result := ScoreQuiz(threeQuestions(), []int{0, 1, 2})

	assert.Equal(t, 3, result.Correct)
	assert.Equal(t, 100, result.Score)
	assert.True(t, result.Passed)
}

func TestScoreQuiz_ExactThresholdPasses(t *testing.T) {
	questions := make([]QuizQuestion, 10)
	answers := make([]int, 10)
	for i := range questions {
		questions[i] = QuizQuestion{Options: []string{"a", "b"}, CorrectOption: 0}
		if i < 7 {
			answers[i] = 0
		} else {
			answers[i] = 1
		}
	}

	result := ScoreQuiz(questions, answers)
	assert.Equal(t, 70, result.Score)
	assert.True(t, result.Passed)
}

func TestScoreQuiz_MissingAnswersCountAsWrong(t *testing.T) {
	result := ScoreQuiz(threeQuestions(), []int{0})

	assert.Equal(t, 1, result.Correct)
	assert.Equal(t, 33, result.Score)
	assert.False(t, result.Passed)
}

func TestScoreQuiz_NoAnswers(t *testing.T) {
	result := ScoreQuiz(threeQuestions(), nil)

	assert.Equal(t, 0, result.Correct)
	assert.Equal(t, 0, result.Score)
	assert.False(t, result.Passed)
}

func TestScoreQuiz_NoQuestionsIsZeroValue(t *testing.T) {
	result := ScoreQuiz(nil, []int{0})
	assert.Equal(t, QuizResult{}, result)
}
