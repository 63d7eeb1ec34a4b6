package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/dreamloop/backend/pkg/httpcontext"
	streakUC "github.com/dreamloop/backend/usecase/streak"
)

type StreakHandler struct {
	baseHandler
	uc *streakUC.UseCase
}

func NewStreakHandler(uc *streakUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *StreakHandler {
	return &StreakHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Get current user's streak
// @Tags streaks
// @Router /api/v1/streak [get]
func (h *StreakHandler) GetStreak(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	record, err := h.uc.GetStreak(stdCtx, userID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, record)
}

// @Summary Streak leaderboard
// @Tags streaks
// @Router /api/v1/leaderboard [get]
func (h *StreakHandler) Leaderboard(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	limit := parseInt(string(ctx.QueryArgs().Peek("limit")), 0)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	entries, err := h.uc.Leaderboard(stdCtx, limit)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, entries)
}
