package postgres

import (
	"encoding/json"
	"time"

	"github.com/dreamloop/backend/domain"
)

func marshalMap(data map[string]string) []byte {
	if len(data) == 0 {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return b
}

func marshalQuestions(questions []domain.QuizQuestion) []byte {
	if len(questions) == 0 {
		return nil
	}
	b, err := json.Marshal(questions)
	if err != nil {
		return nil
	}
	return b
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
