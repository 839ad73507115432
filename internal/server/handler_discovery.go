package server

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
)

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description,omitempty"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

var endpointDescriptions = map[string]string{
	"/api/v1":                  "This listing",
	"/api/v1/health":           "Server health and version",
	"/api/v1/policies":         "Registered scheduling policies",
	"/api/v1/simulations":      "Run a workload (YAML body, ?policy=NAME) or list stored runs",
	"/api/v1/simulations/{id}": "Single run with timeline and process statistics",
}

// endpoints lists the registered routes by walking the router.
func (s *Server) endpoints() []endpointInfo {
	byPath := make(map[string][]string)
	chi.Walk(s.router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		route = strings.TrimSuffix(route, "/")
		byPath[route] = append(byPath[route], method)
		return nil
	})

	out := make([]endpointInfo, 0, len(byPath))
	for path, methods := range byPath {
		sort.Strings(methods)
		out = append(out, endpointInfo{Path: path, Methods: methods, Description: endpointDescriptions[path]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reply(w, r, http.StatusOK, discoveryResponse{
		Name:        "schedsim API",
		Version:     "v1",
		Description: "Discrete-time process scheduling simulator",
		Endpoints:   s.endpoints(),
	})
}
