package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/quizify/quizify-server/internal/api/respond"
	"github.com/quizify/quizify-server/internal/cache"
	"github.com/quizify/quizify-server/internal/quiz"
	"github.com/quizify/quizify-server/internal/store"
)

// answerRequest is the body for attempt and notification-answer posts.
type answerRequest struct {
	QuestionID     int    `json:"questionId"`
	SelectedAnswer string `json:"selectedAnswer"`
}

// GetNextQuestion serves the on-demand variant of the question selector:
// the same least-shown / worst-accuracy / random-tie-break policy the
// scheduler uses, outside the tick loop.
// @Summary Next quiz question
// @Description Picks the next question for the authenticated user.
// @Tags quiz
// @Produce json
// @Success 200 {object} quiz.Question
// @Failure 404 {object} respond.ErrorResponse
// @Router /quiz/next [get]
func (h *Handler) GetNextQuestion(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	pool, err := h.store.QuestionPool(r.Context(), uid)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to get next question")
		return
	}

	question, ok := quiz.SelectQuestion(pool)
	if !ok {
		respond.WriteError(w, http.StatusNotFound, "NO_QUESTIONS",
			"No questions available. Generate questions from your notes!")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, question)
}

// PostAttempt records an in-app answer: inserts the attempt and bumps the
// question's shown/correct counters.
// @Summary Record quiz attempt
// @Description Records an answer and returns correctness.
// @Tags quiz
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /quiz/attempt [post]
func (h *Handler) PostAttempt(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	req, ok := decodeAnswer(w, r)
	if !ok {
		return
	}

	question, err := h.store.QuestionOwned(r.Context(), req.QuestionID, uid)
	if err != nil {
		writeQuestionLookupError(w, err)
		return
	}

	isCorrect := req.SelectedAnswer == question.CorrectAnswer
	attempt, err := h.store.RecordAttempt(r.Context(), uid, question.ID, req.SelectedAnswer, isCorrect)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to record attempt")
		return
	}
	h.cache.Invalidate(statsCacheKey(uid))

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"attempt":       attempt,
		"isCorrect":     isCorrect,
		"correctAnswer": question.CorrectAnswer,
	})
}

// PostNotificationAnswer records an answer to a pushed question. Besides
// the attempt itself, this is the one path that marks the last
// notification answered and resets the consecutive-ignore counter — the
// scheduler never does that.
// @Summary Answer a pushed question
// @Description Records an answer from a notification and resets engagement state.
// @Tags quiz
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /quiz/notification-answer [post]
func (h *Handler) PostNotificationAnswer(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	req, ok := decodeAnswer(w, r)
	if !ok {
		return
	}

	question, err := h.store.QuestionOwned(r.Context(), req.QuestionID, uid)
	if err != nil {
		writeQuestionLookupError(w, err)
		return
	}

	isCorrect := req.SelectedAnswer == question.CorrectAnswer
	if _, err := h.store.RecordAttempt(r.Context(), uid, question.ID, req.SelectedAnswer, isCorrect); err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to record notification answer")
		return
	}
	if err := h.store.ResetEngagement(r.Context(), uid); err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to record notification answer")
		return
	}
	h.cache.Invalidate(statsCacheKey(uid))

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"isCorrect":     isCorrect,
		"correctAnswer": question.CorrectAnswer,
	})
}

// GetStats serves the user's answer statistics, cached briefly with ETag
// revalidation.
// @Summary Quiz statistics
// @Description Returns attempt totals, accuracy, streak, and note count.
// @Tags quiz
// @Produce json
// @Success 200 {object} quiz.Stats
// @Router /quiz/stats [get]
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	key := statsCacheKey(uid)

	if data, etag, ok := h.cache.Get(key); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLStats, true)
		return
	}

	stats, err := h.store.Stats(r.Context(), uid)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to get stats")
		return
	}

	data, err := json.Marshal(stats)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to get stats")
		return
	}
	etag := h.cache.Set(key, data, cache.TTLStats)
	respond.WriteJSON(w, data, etag, cache.TTLStats, false)
}

func statsCacheKey(userID int) string {
	return fmt.Sprintf("quiz:stats:%d", userID)
}

func decodeAnswer(w http.ResponseWriter, r *http.Request) (answerRequest, bool) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body")
		return req, false
	}
	if req.QuestionID == 0 || req.SelectedAnswer == "" {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "questionId and selectedAnswer are required")
		return req, false
	}
	return req, true
}

func writeQuestionLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Question not found")
		return
	}
	respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Question lookup failed")
}
