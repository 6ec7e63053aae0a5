package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iurnickita/eventbilling/internal/adjustment"
	"github.com/iurnickita/eventbilling/internal/handler/config"
	"github.com/iurnickita/eventbilling/internal/logger"
	"github.com/iurnickita/eventbilling/internal/service"
)

func Serve(cfg config.Config, service service.Service, zaplog *zap.Logger) error {
	h := newHandler(service, zaplog)
	router := h.newRouter()

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  40 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  time.Minute,
	}

	zaplog.Info("server started", zap.String("addr", cfg.ServerAddr))
	return srv.ListenAndServe()
}

type handler struct {
	service service.Service
	zaplog  *zap.Logger
}

func newHandler(service service.Service, zaplog *zap.Logger) *handler {
	return &handler{
		service: service,
		zaplog:  zaplog,
	}
}

func (h *handler) newRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logger.RequestLogMdlw(h.zaplog))

	r.Route("/api/events", func(r chi.Router) {
		r.Post("/", h.PostEvent)
		r.Route("/{eventID}", func(r chi.Router) {
			r.Get("/", h.GetEvent)
			r.Put("/pricing", h.PutEventPricing)
			r.Get("/balance", h.GetBalance)
			r.Post("/payments", h.PostPayment)
			r.Delete("/payments/{paymentID}", h.DeletePayment)
			r.Get("/adjustment", h.GetAdjustment)
			r.Post("/adjustment", h.PostAdjustment)
		})
	})

	return r
}

func (h *handler) PostEvent(w http.ResponseWriter, r *http.Request) {
	var request EventJSONRequest
	if err := readJSON(w, r, &request); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.service.CreateEvent(r.Context(), request.toInput())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newEventJSONResponse(event))
}

func (h *handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := urlID(w, r, "eventID")
	if !ok {
		return
	}

	event, err := h.service.GetEvent(r.Context(), eventID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newEventJSONResponse(event))
}

func (h *handler) PutEventPricing(w http.ResponseWriter, r *http.Request) {
	eventID, ok := urlID(w, r, "eventID")
	if !ok {
		return
	}

	var request EventJSONRequest
	if err := readJSON(w, r, &request); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.service.UpdateEventPricing(r.Context(), eventID, request.toInput())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newEventJSONResponse(event))
}

func (h *handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	eventID, ok := urlID(w, r, "eventID")
	if !ok {
		return
	}

	summary, err := h.service.GetBalance(r.Context(), eventID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newBalanceJSONResponse(summary))
}

func (h *handler) PostPayment(w http.ResponseWriter, r *http.Request) {
	eventID, ok := urlID(w, r, "eventID")
	if !ok {
		return
	}

	var request PaymentJSONRequest
	if err := readJSON(w, r, &request); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.CreatePayment(r.Context(), eventID, request.toInput())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, PaymentResultJSONResponse{
		Payment:          newPaymentJSONResponse(result.Payment),
		OverCoverage:     result.OverCoverage,
		RatesUnavailable: result.RatesUnavailable,
	})
}

func (h *handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	eventID, ok := urlID(w, r, "eventID")
	if !ok {
		return
	}
	paymentID, ok := urlID(w, r, "paymentID")
	if !ok {
		return
	}

	err := h.service.DeletePayment(r.Context(), eventID, paymentID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) GetAdjustment(w http.ResponseWriter, r *http.Request) {
	eventID, ok := urlID(w, r, "eventID")
	if !ok {
		return
	}

	preview, err := h.service.PreviewAdjustment(r.Context(), eventID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPreviewJSONResponse(preview))
}

func (h *handler) PostAdjustment(w http.ResponseWriter, r *http.Request) {
	eventID, ok := urlID(w, r, "eventID")
	if !ok {
		return
	}

	// тело необязательно
	var request AdjustmentJSONRequest
	if err := readJSON(w, r, &request); err != nil && !errors.Is(err, io.EOF) {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.ApplyAdjustment(r.Context(), eventID, request.Force)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AdjustmentJSONResponse{
		Event:   newEventJSONResponse(result.Event),
		Preview: newPreviewJSONResponse(result.Preview),
	})
}

func (h *handler) writeServiceError(w http.ResponseWriter, err error) {
	var notEligible *adjustment.NotEligibleError
	switch {
	case errors.As(err, &notEligible):
		writeJSON(w, http.StatusConflict, ErrorJSONResponse{
			Error:          err.Error(),
			NextEligibleAt: &notEligible.NextEligibleAt,
		})
	case errors.Is(err, service.ErrInsufficientData):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnprocessableEntity):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidState):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrAlreadyExists),
		errors.Is(err, service.ErrConcurrentUpdate),
		errors.Is(err, service.ErrNotEligible):
		writeJSONError(w, http.StatusConflict, err.Error())
	default:
		h.zaplog.Error("request failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

func urlID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	responseJSON, err := json.Marshal(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(responseJSON)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorJSONResponse{Error: message})
}

func readJSON(w http.ResponseWriter, r *http.Request, data any) error {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	return dec.Decode(data)
}
