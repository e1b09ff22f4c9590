package adapter

import (
	"encoding/json"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/go-vault-sync/models"
)

// mapHTTPError returns nil when resp has one of the expected statuses,
// otherwise an *HTTPError described by fallback.
func mapHTTPError(resp *resty.Response, fallback string, expected ...int) error {
	status := resp.StatusCode()
	for _, code := range expected {
		if status == code {
			return nil
		}
	}
	if len(expected) == 0 && status >= http.StatusOK && status < http.StatusMultipleChoices {
		return nil
	}

	httpErr := &HTTPError{
		Status:   status,
		kind:     statusKind(status),
		fallback: fallback,
	}

	var body models.ErrorResponse
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		httpErr.Title = body.Title
		httpErr.Message = body.Message
	}

	return httpErr
}

func statusKind(status int) error {
	switch status {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusPreconditionFailed:
		return ErrPreconditionFailed
	case http.StatusBadGateway:
		return ErrBadGateway
	case http.StatusInternalServerError:
		return ErrInternalServerError
	default:
		return ErrUnexpectedStatus
	}
}
