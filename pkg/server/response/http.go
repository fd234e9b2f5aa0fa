package response

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/render"
)

type Object struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type HealthCheck struct {
	Commit    string            `json:"commit"`
	Version   string            `json:"version"`
	Dependencies map[string]string `json:"dependencies"`
}

// Checker reports one dependency's reachability ("up" or "down"). The admin
// gateway is handed its checkers by cmd/server (Postgres and Redis) instead
// of this package dialing anything itself.
type Checker func() string

// Health renders a HealthCheck built from the given named checkers, run
// synchronously on every request (spec.md §6.3's admin surface is low
// traffic, so a fresh check per call is acceptable).
func Health(w http.ResponseWriter, r *http.Request, checkers map[string]Checker) {
	deps := make(map[string]string, len(checkers))
	for name, check := range checkers {
		deps[name] = check()
	}

	health := HealthCheck{
		Commit:       os.Getenv("COMMIT_VERSION"),
		Version:      "1.0.0",
		Dependencies: deps,
	}

	OK(w, r, health)
}

func OK(w http.ResponseWriter, r *http.Request, data any) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, data)
}

func NoContent(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusNoContent)
}

func BadRequest(w http.ResponseWriter, r *http.Request, err error, data any) {
	msg := "bad request"
	if err != nil {
		msg = err.Error()
	}

	render.Status(r, http.StatusBadRequest)
	v := Object{
		Success: false,
		Data:    data,
		Message: msg,
	}
	render.JSON(w, r, v)
}

func NotFound(w http.ResponseWriter, r *http.Request, err error) {
	msg := "resource not found"
	if err != nil {
		msg = err.Error()
	}

	render.Status(r, http.StatusNotFound)
	v := Object{
		Success: false,
		Message: msg,
	}
	render.JSON(w, r, v)
}

func Unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	msg := "unauthorized"
	if err != nil {
		msg = err.Error()
	}

	render.Status(r, http.StatusUnauthorized)
	v := Object{
		Success: false,
		Message: msg,
	}
	render.JSON(w, r, v)
}

func Conflict(w http.ResponseWriter, r *http.Request, err error) {
	msg := "resource conflict"
	if err != nil {
		msg = err.Error()
	}

	render.Status(r, http.StatusConflict)
	v := Object{
		Success: false,
		Message: msg,
	}
	render.JSON(w, r, v)
}

func InternalServerError(w http.ResponseWriter, r *http.Request, err error, data any) {
	msg := "internal server error"
	if err != nil {
		msg = err.Error()
	}

	if err != nil && (errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "context deadline exceeded")) {
		switch r.Header.Get("Language") {
		case "RUS":
			msg = "Превышено время ожидания запроса"
		case "KAZ":
			msg = "Сұраудың күту уақыты асып кетті"
		default:
			msg = "Request timeout exceeded"
		}
	}

	render.Status(r, http.StatusInternalServerError)
	v := Object{
		Success: false,
		Data:    data,
		Message: msg,
	}
	render.JSON(w, r, v)
}
