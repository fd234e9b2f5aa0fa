// Package middleware holds the Admin HTTP Gateway's cross-cutting HTTP
// middleware (panic recovery, error rendering).
package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"bistro-server/internal/pkg/httputil"
	berrors "bistro-server/pkg/errors"
	pkghttputil "bistro-server/pkg/httputil"
)

// ErrorHandler recovers from panics in downstream handlers and renders them
// as the same JSON error envelope RespondError uses, instead of dropping
// the connection.
func ErrorHandler(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					err, ok := rec.(error)
					if !ok {
						err = berrors.ErrInternal
					}
					logger.Error("panic recovered",
						zap.Any("recovered", rec),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
					)
					RespondError(w, r, logger, berrors.ErrInternal.Wrap(err))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RespondError writes a domain error as a JSON body with the matching HTTP
// status, logging at a level that matches the error's severity.
func RespondError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var domainErr *berrors.Error
	if !errors.As(err, &domainErr) {
		domainErr = berrors.ErrInternal.Wrap(err)
	}

	if httputil.IsServerError(domainErr.HTTPStatus) {
		logger.Error("admin request failed", zap.Error(err), zap.String("path", r.URL.Path))
	} else {
		logger.Warn("admin request rejected", zap.Error(err), zap.String("path", r.URL.Path), zap.Int("status", domainErr.HTTPStatus))
	}

	w.Header().Set(pkghttputil.HeaderContentType, pkghttputil.ContentTypeJSON)
	w.WriteHeader(domainErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(domainErr)
}
