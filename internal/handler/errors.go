package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nasidaunjeruk/pos/internal/apperr"
	"github.com/nasidaunjeruk/pos/internal/payment"
	"github.com/nasidaunjeruk/pos/internal/remotesync"
	"github.com/nasidaunjeruk/pos/internal/service"
	"github.com/sirupsen/logrus"
)

type paymentErrorResponse struct {
	Error   string         `json:"error"`
	Payment payment.Result `json:"payment"`
}

// writeError maps a service error to a status code. Validation failures that
// block a checkout are 422, other validation failures 400, remote sync failures
// 502. Anything unknown is logged and reported as 500.
func writeError(w http.ResponseWriter, op string, err error) {
	var pe *service.PaymentError
	switch {
	case errors.As(err, &pe):
		writeJSON(w, http.StatusUnprocessableEntity, paymentErrorResponse{Error: pe.Result.Message, Payment: pe.Result})
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrBelowMinimum),
		errors.Is(err, service.ErrAboveMaximum):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case apperr.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, remotesync.ErrFlushInProgress), errors.Is(err, remotesync.ErrNoEndpoint):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case apperr.IsSync(err):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		logrus.WithError(err).Errorf("%s failed", op)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
