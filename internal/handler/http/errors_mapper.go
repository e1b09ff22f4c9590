package http

import (
	"errors"
	"net/http"

	"github.com/MKhiriev/go-vault-sync/internal/logger"
	"github.com/MKhiriev/go-vault-sync/internal/service"
	"github.com/MKhiriev/go-vault-sync/internal/store"
	"github.com/MKhiriev/go-vault-sync/internal/utils"
)

var errorStatusMap = map[error]int{
	ErrInvalidJSON:                 http.StatusBadRequest,
	ErrUnknownAction:               http.StatusBadRequest,
	service.ErrInvalidDataProvided: http.StatusBadRequest,
	service.ErrInvalidDocument:     http.StatusBadRequest,
	store.ErrIndexOutOfRange:       http.StatusBadRequest,

	ErrNoSessionCookie:                 http.StatusUnauthorized,
	service.ErrTokenIsExpiredOrInvalid: http.StatusUnauthorized,
	service.ErrInvalidSignature:        http.StatusUnauthorized,
	service.ErrChallengeExpired:        http.StatusUnauthorized,
	service.ErrChallengeMismatch:       http.StatusUnauthorized,
	service.ErrInvalidTOTPCode:         http.StatusUnauthorized,
	store.ErrChallengeNotFound:         http.StatusUnauthorized,
	store.ErrNoUserWasFound:            http.StatusUnauthorized,

	service.ErrCSRFTokenMismatch:                     http.StatusForbidden,
	service.ErrElevationRequired:                     http.StatusForbidden,
	service.ErrUnauthorizedAccessToDifferentUserData: http.StatusForbidden,

	service.ErrUnknownCollection: http.StatusNotFound,
	store.ErrDocumentNotFound:    http.StatusNotFound,
	store.ErrSessionNotFound:     http.StatusNotFound,
	store.ErrMasterKeysNotFound:  http.StatusNotFound,

	store.ErrEmailAlreadyExists:  http.StatusConflict,
	service.ErrUsernameTaken:     http.StatusConflict,
	service.ErrKeysAlreadyStored: http.StatusConflict,

	service.ErrTOTPRequired: http.StatusPreconditionFailed,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}

// writeError answers with the status mapped from err. Server failures hide
// err behind msg.
func writeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	log := logger.FromRequest(r)
	status := statusFromError(err)

	if status >= http.StatusInternalServerError {
		log.Err(err).Msg(msg)
		utils.WriteError(w, status, "", msg)
		return
	}

	log.Warn().Err(err).Int("status", status).Msg(msg)
	utils.WriteError(w, status, "", err.Error())
}
