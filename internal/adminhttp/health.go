package adminhttp

import (
	"net/http"

	"bistro-server/pkg/server/response"
)

// healthChecker reports "up" or "down" for one backing dependency.
type healthChecker = func() string

func (gw *Gateway) health(w http.ResponseWriter, r *http.Request) {
	checkers := make(map[string]response.Checker, len(gw.checks))
	for name, check := range gw.checks {
		checkers[name] = response.Checker(check)
	}
	response.Health(w, r, checkers)
}
