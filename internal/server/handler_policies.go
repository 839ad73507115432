package server

import "net/http"

type policyInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Params      string `json:"params,omitempty"`
}

func (s *Server) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	var out []policyInfo
	for _, name := range s.registry.Names() {
		p, err := s.registry.Get(name)
		if err != nil {
			continue
		}
		out = append(out, policyInfo{Name: name, Description: p.Name()})
	}
	out = append(out, policyInfo{
		Name:        scriptPolicy,
		Description: "JavaScript ordering key, smallest runs first",
		Params:      "script=EXPR, e.g. p.remaining * 2 + p.priority",
	})
	reply(w, r, http.StatusOK, out)
}
