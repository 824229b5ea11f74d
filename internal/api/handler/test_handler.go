package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/notifyhub/orderpush/internal/service"
)

// TestNotificationHandler sends a fixed data-only push to one staff member
// for manual verification of their device registration.
type TestNotificationHandler struct {
	svc    *service.DispatchService
	logger *zap.Logger
}

func NewTestNotificationHandler(svc *service.DispatchService, logger *zap.Logger) *TestNotificationHandler {
	return &TestNotificationHandler{svc: svc, logger: logger}
}

type testNotificationRequest struct {
	RecipientIdentity string `json:"recipientIdentity"`
}

// Send handles POST /api/v1/notifications/test
//
// @Summary  Send a test data-only notification
// @Tags     notifications
// @Accept   json
// @Produce  json
// @Param    body  body      testNotificationRequest  true  "Staff identity"
// @Success  200   {object}  map[string]any
// @Failure  400   {object}  map[string]string
// @Failure  404   {object}  map[string]string
// @Failure  500   {object}  map[string]string
// @Router   /api/v1/notifications/test [post]
func (h *TestNotificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req testNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := h.svc.SendTest(r.Context(), req.RecipientIdentity)
	if err != nil {
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Test data-only notification sent",
		"response": res.MessageID,
	})
}
