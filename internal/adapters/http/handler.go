package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"payfort-gateway/internal/app"
	"payfort-gateway/internal/config"
	"payfort-gateway/internal/core/domain"
	"payfort-gateway/internal/payfort"
)

// Route paths under the payment mount point, shared between the handlers and
// the pages they render.
const (
	basePath         = "/payment/payfort"
	statusPath       = basePath + "/status"
	errorPath        = basePath + "/error"
	transactionIDKey = "transactionID"
)

// PaymentHandler exposes the gateway integration over HTTP: the pay trigger,
// the three callback entry points, the status poll and the error pages.
type PaymentHandler struct {
	service   *app.Service
	templates *Templates
	statusCfg config.StatusPageConfig
	logger    *slog.Logger
}

func NewPaymentHandler(service *app.Service, templates *Templates, statusCfg config.StatusPageConfig, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:   service,
		templates: templates,
		statusCfg: statusCfg,
		logger:    logger,
	}
}

// Register mounts the payment routes.
func (h *PaymentHandler) Register(r chi.Router) {
	r.Route(basePath, func(r chi.Router) {
		r.Get("/pay", h.HandlePay)
		r.Post("/pay", h.HandlePay)
		r.Post("/response", h.HandleRedirect)
		r.Post("/feedback", h.feedbackHandler(app.EndpointFeedback))
		// The notification route is a pure alias of feedback, kept as a
		// separate external URL for gateway-initiated calls.
		r.Post("/notification", h.feedbackHandler(app.EndpointNotification))
		r.Post("/status", h.HandleStatus)
		r.Get("/error", h.HandleGenericErrorPage)
		r.Get("/error/{"+transactionIDKey+"}", h.HandleErrorPage)
	})
}

// payloadFromForm flattens the URL-form-encoded body into the callback
// payload. Repeated keys keep their first value.
func payloadFromForm(r *http.Request) domain.CallbackPayload {
	_ = r.ParseForm()
	payload := make(domain.CallbackPayload, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			payload[key] = values[0]
		}
	}
	return payload
}

// HandlePay builds the signed transaction and renders the auto-submitting
// form that sends the customer to the hosted checkout page. The gateway page
// URL is attached after signing and never enters the signature.
func (h *PaymentHandler) HandlePay(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	basketID, err := strconv.ParseInt(r.Form.Get("basket_id"), 10, 64)
	if err != nil || basketID <= 0 {
		http.NotFound(w, r)
		return
	}

	reqCtx := payfort.RequestContext{
		Locale:       r.Form.Get("locale"),
		ForwardedFor: r.Header.Get("X-Forwarded-For"),
		RemoteAddr:   r.RemoteAddr,
	}
	params, err := h.service.BuildTransaction(r.Context(), basketID, reqCtx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("failed to build transaction", "basket_id", basketID, "error", err)
		writeJSONError(w, "cannot start payment", http.StatusUnprocessableEntity, h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = h.templates.renderPaymentForm(w, paymentFormData{
		Language:   params["language"],
		GatewayURL: h.service.GatewayPageURL(),
		Params:     params,
	})
	if err != nil {
		h.logger.Error("failed to render payment form", "error", err)
	}
}

// HandleRedirect is entry point A: the customer's browser returning from the
// gateway with the payment result.
func (h *PaymentHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	payload := payloadFromForm(r)
	result := h.service.ProcessRedirect(r.Context(), payload)

	switch result.Action {
	case app.ActionReject:
		http.NotFound(w, r)
	case app.ActionErrorPage:
		http.Redirect(w, r, errorPath+"/"+result.TransactionID, http.StatusFound)
	case app.ActionGenericError:
		http.Redirect(w, r, errorPath, http.StatusFound)
	case app.ActionWaitPage:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err := h.templates.renderWait(w, waitPageData{
			TransactionID:     result.TransactionID,
			MerchantReference: payload["merchant_reference"],
			StatusURL:         statusPath,
			ErrorURL:          errorPath + "/" + result.TransactionID,
			MaxAttempts:       h.statusCfg.MaxAttempts,
			WaitMs:            h.statusCfg.WaitMs,
		})
		if err != nil {
			h.logger.Error("failed to render wait page", "error", err)
		}
	}
}

// feedbackHandler serves entry point B and its notification alias: the
// server-to-server result delivery, possibly duplicated, possibly arriving
// before or after the browser redirect.
func (h *PaymentHandler) feedbackHandler(endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := payloadFromForm(r)
		err := h.service.ProcessFeedback(r.Context(), endpoint, payload)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusOK)
		case errors.Is(err, domain.ErrProcessing):
			w.WriteHeader(http.StatusUnprocessableEntity)
		default:
			// Bad signature, bad format, unknown basket, lost audit record:
			// all deliberately indistinguishable to the caller.
			http.NotFound(w, r)
		}
	}
}

// HandleStatus is entry point C, polled by the wait page.
func (h *PaymentHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	result, err := h.service.PaymentStatus(r.Context(), r.Form.Get("merchant_reference"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	switch result.Status {
	case domain.BasketFrozen:
		w.WriteHeader(http.StatusNoContent)
	case domain.BasketSubmitted:
		writeJSON(w, map[string]string{"receipt_url": result.ReceiptURL}, http.StatusOK, h.logger)
	default:
		http.NotFound(w, r)
	}
}

// HandleErrorPage renders the internal error page keyed by a transaction id.
func (h *PaymentHandler) HandleErrorPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	err := h.templates.renderError(w, errorPageData{
		TransactionID: chi.URLParam(r, transactionIDKey),
	})
	if err != nil {
		h.logger.Error("failed to render error page", "error", err)
	}
}

// HandleGenericErrorPage renders the generic payment-error page.
func (h *PaymentHandler) HandleGenericErrorPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := h.templates.renderError(w, errorPageData{}); err != nil {
		h.logger.Error("failed to render error page", "error", err)
	}
}
