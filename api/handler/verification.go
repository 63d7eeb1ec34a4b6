package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/dreamloop/backend/api/transport"
	"github.com/dreamloop/backend/domain"
	"github.com/dreamloop/backend/pkg/httpcontext"
	verificationUC "github.com/dreamloop/backend/usecase/verification"
)

// VerificationHandler exposes the proof, quiz and manual-toggle submission
// endpoints. The client observes only the persisted task state and feedback;
// it re-reads tasks rather than participating in the decision.
type VerificationHandler struct {
	baseHandler
	uc *verificationUC.UseCase
}

func NewVerificationHandler(uc *verificationUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *VerificationHandler {
	return &VerificationHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Submit proof for verification
// @Tags verification
// @Router /api/v1/tasks/{id}/proof [post]
func (h *VerificationHandler) SubmitProof(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}
	taskID := h.taskID(ctx)
	if taskID == "" {
		return
	}

	var req transport.ProofSubmissionRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.ProofURL == "" {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "missing proof url", nil))
		return
	}

	// The proof path includes one bounded inference call, so it runs under
	// the handler's request context rather than a shorter store deadline.
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.SubmitProof(stdCtx, userID, taskID, req.ProofURL)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.SubmissionResponse{
		Task:     task,
		Feedback: task.Notes,
	})
}

// @Summary Submit quiz answers
// @Tags verification
// @Router /api/v1/tasks/{id}/quiz [post]
func (h *VerificationHandler) SubmitQuiz(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}
	taskID := h.taskID(ctx)
	if taskID == "" {
		return
	}

	var req transport.QuizSubmissionRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.NewError(string(domain.ErrCodeInvalid), "invalid payload", nil))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, result, err := h.uc.SubmitQuiz(stdCtx, userID, taskID, req.Answers)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.SubmissionResponse{
		Task:     task,
		Feedback: task.Notes,
		Quiz:     result,
	})
}

// @Summary Toggle manual completion
// @Tags verification
// @Router /api/v1/tasks/{id}/toggle [post]
func (h *VerificationHandler) ToggleCompletion(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}
	taskID := h.taskID(ctx)
	if taskID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.ToggleCompletion(stdCtx, userID, taskID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.SubmissionResponse{Task: task})
}
