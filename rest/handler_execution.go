package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/hrflow/hrflow/compiler"
	"github.com/hrflow/hrflow/logger"
	"github.com/hrflow/hrflow/model"
	"github.com/hrflow/hrflow/persistence"
	"github.com/hrflow/hrflow/service"
	"go.uber.org/zap"
)

func (s *Server) HandleExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	workflowId, err := pathId(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid workflow id")
		return
	}
	var runReq model.ExecutionRunRequest
	if err := json.NewDecoder(r.Body).Decode(&runReq); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	defer r.Body.Close()
	result, err := s.executionService.ExecuteWorkflow(r.Context(), workflowId, runReq)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// HandleCompileWorkflow previews the compiled engine document without
// creating an execution or touching the engine.
func (s *Server) HandleCompileWorkflow(w http.ResponseWriter, r *http.Request) {
	workflowId, err := pathId(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid workflow id")
		return
	}
	doc, err := s.executionService.CompileWorkflow(workflowId)
	if err != nil {
		var policyErr compiler.PolicyError
		if errors.As(err, &policyErr) {
			respondWithJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":   policyErr.Error(),
				"denials": policyErr.Denials,
			})
			return
		}
		var configErr compiler.ConfigError
		if errors.As(err, &configErr) {
			respondWithError(w, http.StatusUnprocessableEntity, configErr.Error())
			return
		}
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, doc)
}

func (s *Server) HandleGetExecution(w http.ResponseWriter, r *http.Request) {
	executionId := mux.Vars(r)["id"]
	rec, err := s.executionService.GetExecution(executionId)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rec)
}

func (s *Server) HandleGetExecutionSteps(w http.ResponseWriter, r *http.Request) {
	executionId := mux.Vars(r)["id"]
	steps, err := s.executionService.GetExecutionSteps(executionId)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, steps)
}

func pathId(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

func respondServiceError(w http.ResponseWriter, err error) {
	var pre service.PreconditionError
	if errors.As(err, &pre) {
		code := http.StatusBadRequest
		switch pre.Reason {
		case service.PRECONDITION_NOT_FOUND:
			code = http.StatusNotFound
		case service.PRECONDITION_INACTIVE:
			code = http.StatusConflict
		case service.PRECONDITION_EMPTY:
			code = http.StatusUnprocessableEntity
		}
		respondWithError(w, code, pre.Error())
		return
	}
	var notFound persistence.NotFoundError
	if errors.As(err, &notFound) {
		respondWithError(w, http.StatusNotFound, notFound.Error())
		return
	}
	logger.Error("request failed", zap.Error(err))
	respondWithError(w, http.StatusInternalServerError, "internal error")
}
