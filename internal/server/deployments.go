package server

import (
	"net/http"

	"arsflow/internal/store"
	"arsflow/pkg/schema"
)

func (s *Server) handleListDeployments(w http.ResponseWriter, r *http.Request) {
	filter := store.DeploymentFilter{
		ScenarioID:  r.URL.Query().Get("scenario_id"),
		Environment: r.URL.Query().Get("environment"),
		Limit:       queryInt(r, "limit", 0),
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := schema.DeploymentStatus(v)
		filter.Status = &status
	}

	deployments, err := s.deps.Store.ListDeployments(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deployments": deployments, "count": len(deployments)})
}

func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DeployedBy string `json:"deployed_by"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	d, err := s.deps.Deploy.Rollback(r.Context(), r.PathValue("id"), body.DeployedBy)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// handleDeploymentHistory lists all deployments of the scenario the given
// deployment belongs to, in its environment.
func (s *Server) handleDeploymentHistory(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Store.GetDeployment(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	history, err := s.deps.Deploy.History(r.Context(), d.ScenarioID, d.Environment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deployments": history, "count": len(history)})
}

func (s *Server) handleLatestDeployment(w http.ResponseWriter, r *http.Request) {
	environment := r.URL.Query().Get("environment")
	if environment == "" {
		environment = "production"
	}

	d, err := s.deps.Deploy.Latest(r.Context(), r.PathValue("id"), environment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
