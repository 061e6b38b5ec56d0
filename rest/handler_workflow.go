package rest

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hrflow/hrflow/logger"
	"github.com/hrflow/hrflow/model"
	"go.uber.org/zap"
)

// HandleSaveWorkflow ingests a workflow definition from the graph-editing
// collaborator. Node kinds are normalized on the way in; unknown kinds are
// kept and compile to inert pass-through nodes.
func (s *Server) HandleSaveWorkflow(w http.ResponseWriter, r *http.Request) {
	var wf model.Workflow
	if err := json.NewDecoder(r.Body).Decode(&wf); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid workflow definition")
		return
	}
	defer r.Body.Close()
	if wf.Id <= 0 {
		respondWithError(w, http.StatusBadRequest, "workflow id is required")
		return
	}
	for i := range wf.Nodes {
		wf.Nodes[i].Kind = model.ToNodeKind(string(wf.Nodes[i].Kind))
	}
	if err := s.workflowStorage.SaveWorkflow(wf); err != nil {
		logger.Error("error saving workflow", zap.Int64("workflowId", wf.Id), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error saving workflow")
		return
	}
	respondOK(w, map[string]any{"id": wf.Id})
}

func (s *Server) HandleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	workflowId, err := pathId(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid workflow id")
		return
	}
	wf, err := s.workflowStorage.GetWorkflow(workflowId)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, wf)
}

// HandleAddDomain appends one rule to the outbound allow-list. Adding the
// first rule switches the policy from open mode to enforcement.
func (s *Server) HandleAddDomain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Domain string `json:"domain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	defer r.Body.Close()
	domain := strings.ToLower(strings.TrimSpace(req.Domain))
	if domain == "" {
		respondWithError(w, http.StatusBadRequest, "domain is required")
		return
	}
	if err := s.domainStorage.AddDomain(domain); err != nil {
		logger.Error("error adding allow-list domain", zap.String("domain", domain), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error adding domain")
		return
	}
	respondOK(w, map[string]any{"domain": domain})
}

func (s *Server) HandleListDomains(w http.ResponseWriter, r *http.Request) {
	domains, err := s.domainStorage.ListDomains()
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if domains == nil {
		domains = []string{}
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"domains": domains})
}
