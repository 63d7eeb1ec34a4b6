package transport

import "github.com/dreamloop/backend/domain"

type ProfileUpdateRequest struct {
	Email       string            `json:"email"`
	DisplayName string            `json:"display_name"`
	Dream       string            `json:"dream"`
	Role        string            `json:"role"`
	Status      string            `json:"status"`
	Meta        map[string]string `json:"metadata"`
}

type TaskRequest struct {
	ID            string                `json:"id"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Kind          string                `json:"kind"`
	QuizQuestions []domain.QuizQuestion `json:"quiz_questions"`
}

type ProofSubmissionRequest struct {
	ProofURL string `json:"proof_url"`
}

type QuizSubmissionRequest struct {
	Answers []int `json:"answers"`
}

type AuthLoginRequest struct {
	UserID string `json:"user_id"`
	TTL    int    `json:"ttl_seconds"`
}

type RefreshRequest struct {
	SessionID string `json:"session_id"`
	TTL       int    `json:"ttl_seconds"`
}
