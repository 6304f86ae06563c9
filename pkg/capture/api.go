/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package capture

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"jinr.ru/greenlab/go-ubx/pkg/config"
	"jinr.ru/greenlab/go-ubx/pkg/log"
)

// ApiServer exposes the recorder over HTTP: live status, sink flush and a
// clean stop. It only reads status snapshots and calls loop-safe methods,
// the capture pipeline itself stays single-threaded.
type ApiServer struct {
	*config.Config
	*mux.Router
	capture *Server
}

func NewApiServer(cfg *config.Config, capture *Server) *ApiServer {
	return &ApiServer{
		Config: cfg,
		capture: capture,
	}
}

func (s *ApiServer) Run() error {
	log.Debug("Starting API server: address: %s port: %d", s.ApiConfig.Address, s.ApiConfig.Port)
	s.configureRouter()
	httpServer := &http.Server{
		Handler: handlers.LoggingHandler(os.Stderr, s.Router),
		Addr:    fmt.Sprintf("%s:%d", s.ApiConfig.Address, s.ApiConfig.Port),
	}
	return httpServer.ListenAndServe()
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	subRouter := s.Router.PathPrefix("/api").Subrouter()
	subRouter.HandleFunc("/status", s.handleStatus()).Methods("GET")
	subRouter.HandleFunc("/flush", s.handleFlush()).Methods("GET")
	subRouter.HandleFunc("/stop", s.handleStop()).Methods("POST")
}

func (s *ApiServer) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling status request")
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.capture.Status()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func (s *ApiServer) handleFlush() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling flush request")
		if err := s.capture.flush(); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
		}
	}
}

func (s *ApiServer) handleStop() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling stop request")
		s.capture.Stop()
	}
}
