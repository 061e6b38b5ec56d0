// Package rest exposes the execution orchestrator over HTTP: run and
// preview compilation of workflows, inspect executions and their steps, and
// administer the outbound allow-list.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/hrflow/hrflow/logger"
	"github.com/hrflow/hrflow/persistence"
	"github.com/hrflow/hrflow/service"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

type Server struct {
	http.Server
	Port             int
	executionService *service.WorkflowExecutionService
	workflowStorage  persistence.WorkflowStorage
	domainStorage    persistence.DomainStorage
}

func NewServer(httpPort int, executionService *service.WorkflowExecutionService, workflowStorage persistence.WorkflowStorage, domainStorage persistence.DomainStorage) (*Server, error) {
	s := &Server{
		Server: http.Server{
			Addr:        fmt.Sprintf(":%d", httpPort),
			IdleTimeout: 2 * time.Second,
		},
		Port:             httpPort,
		executionService: executionService,
		workflowStorage:  workflowStorage,
		domainStorage:    domainStorage,
	}

	router := mux.NewRouter()
	router.HandleFunc("/workflow", s.HandleSaveWorkflow).Methods(http.MethodPost)
	router.HandleFunc("/workflow/{id}", s.HandleGetWorkflow).Methods(http.MethodGet)
	router.HandleFunc("/workflow/{id}/execute", s.HandleExecuteWorkflow).Methods(http.MethodPost)
	router.HandleFunc("/workflow/{id}/compile", s.HandleCompileWorkflow).Methods(http.MethodPost)

	router.HandleFunc("/execution/{id}", s.HandleGetExecution).Methods(http.MethodGet)
	router.HandleFunc("/execution/{id}/steps", s.HandleGetExecutionSteps).Methods(http.MethodGet)

	router.HandleFunc("/allowlist", s.HandleListDomains).Methods(http.MethodGet)
	router.HandleFunc("/allowlist", s.HandleAddDomain).Methods(http.MethodPost)

	router.HandleFunc("/health", s.HandleHealth).Methods(http.MethodGet)

	router.Use(loggingMiddleware)
	s.Handler = cors.Default().Handler(router)
	return s, nil
}

func (s *Server) Start() error {
	logger.Info("starting http server on", zap.Int("port", s.Port))
	if err := s.ListenAndServe(); err != nil {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	logger.Info("stopping http server")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := s.Shutdown(ctx)
	if err != nil {
		logger.Error("error shutting down http server")
	}
	return nil
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondOK(w, map[string]any{"status": "up"})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info(r.RequestURI)
		next.ServeHTTP(w, r)
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondOK(w http.ResponseWriter, message map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(200)
	res, _ := json.Marshal(message)
	w.Write(res)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
