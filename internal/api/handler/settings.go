package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/quizify/quizify-server/internal/api/respond"
	"github.com/quizify/quizify-server/internal/store"
)

// GetSettings returns the user's scheduling settings, creating the
// defaulted row on first access.
// @Summary Get notification settings
// @Description Returns scheduling settings for the authenticated user.
// @Tags settings
// @Produce json
// @Success 200 {object} quiz.Settings
// @Router /settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.GetOrCreateSettings(r.Context(), userID(r))
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to get settings")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, settings)
}

// PutSettings applies a partial settings update. Omitted fields are left
// untouched; the interval floor is enforced when the row is read back.
// @Summary Update notification settings
// @Description Partially updates scheduling settings.
// @Tags settings
// @Accept json
// @Produce json
// @Success 200 {object} quiz.Settings
// @Failure 400 {object} respond.ErrorResponse
// @Router /settings [put]
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var patch store.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body")
		return
	}

	settings, err := h.store.UpdateSettings(r.Context(), userID(r), patch)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to update settings")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, settings)
}

// PutPushToken stores the device push token registered by the client.
// @Summary Update push token
// @Description Stores the Expo push token for the authenticated user.
// @Tags settings
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /settings/push-token [put]
func (h *Handler) PutPushToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PushToken string `json:"pushToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PushToken == "" {
		respond.WriteError(w, http.StatusBadRequest, "BAD_REQUEST", "pushToken is required")
		return
	}

	if err := h.store.SetPushToken(r.Context(), userID(r), req.PushToken); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
			return
		}
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL", "Failed to update push token")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Push token updated",
	})
}
