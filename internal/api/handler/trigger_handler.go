package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/notifyhub/orderpush/internal/api/middleware"
	"github.com/notifyhub/orderpush/internal/domain"
	"github.com/notifyhub/orderpush/internal/service"
)

// TriggerHandler receives order change notifications from the document
// database's change feed.
type TriggerHandler struct {
	svc    *service.DispatchService
	logger *zap.Logger
}

func NewTriggerHandler(svc *service.DispatchService, logger *zap.Logger) *TriggerHandler {
	return &TriggerHandler{svc: svc, logger: logger}
}

// OrderCreated handles POST /api/v1/triggers/orders/created
//
// @Summary  Order record created
// @Tags     triggers
// @Accept   json
// @Produce  json
// @Param    body  body      domain.ChangeEvent  true  "Change event"
// @Success  200   {object}  domain.Result
// @Failure  400   {object}  map[string]string
// @Failure  503   {object}  map[string]string  "Redeliver later"
// @Router   /api/v1/triggers/orders/created [post]
func (h *TriggerHandler) OrderCreated(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.svc.HandleCreated)
}

// OrderUpdated handles POST /api/v1/triggers/orders/updated
//
// @Summary  Order record updated
// @Tags     triggers
// @Accept   json
// @Produce  json
// @Param    body  body      domain.ChangeEvent  true  "Change event with before and after state"
// @Success  200   {object}  domain.Result
// @Failure  400   {object}  map[string]string
// @Failure  503   {object}  map[string]string  "Redeliver later"
// @Router   /api/v1/triggers/orders/updated [post]
func (h *TriggerHandler) OrderUpdated(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.svc.HandleUpdated)
}

func (h *TriggerHandler) handle(
	w http.ResponseWriter,
	r *http.Request,
	adapter func(context.Context, domain.ChangeEvent) (domain.Result, error),
) {
	var ce domain.ChangeEvent
	if err := json.NewDecoder(r.Body).Decode(&ce); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := adapter(r.Context(), ce)
	if err != nil {
		h.logger.Warn("order trigger failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.String("event_id", ce.ID),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
