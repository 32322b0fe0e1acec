package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"msp-ledger-service/internal/config"
)

func SetupRouter(txHandler *TransactionHandler, adminHandler *AdminHandler, cfg *config.Config) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheckHandler).Methods(http.MethodGet)

	msp := router.PathPrefix("/msp").Subrouter()
	msp.Use(requestLoggingMiddleware, jsonContentTypeMiddleware, bearerAuthMiddleware(cfg.APIToken))
	msp.HandleFunc("/upload", txHandler.Upload).Methods(http.MethodPost)
	msp.HandleFunc("/getStatus", txHandler.GetStatus).Methods(http.MethodPost)
	msp.HandleFunc("/cancel", txHandler.Cancel).Methods(http.MethodPost)
	msp.HandleFunc("/searchByDate", txHandler.SearchByDate).Methods(http.MethodPost)
	msp.HandleFunc("/retrieve", txHandler.RetrieveByStatus).Methods(http.MethodGet)

	apis := router.PathPrefix("/apis").Subrouter()
	apis.Use(requestLoggingMiddleware, jsonContentTypeMiddleware, bearerAuthMiddleware(cfg.APIToken))
	apis.HandleFunc("/retrieve_msp_status", adminHandler.RetrieveByStatus).Methods(http.MethodGet)
	apis.HandleFunc("/retrieve_msp_trn_id", adminHandler.RetrieveByTrnID).Methods(http.MethodGet)
	apis.HandleFunc("/retrieve_dr_trn_id", adminHandler.RetrieveDebitLines).Methods(http.MethodGet)
	apis.HandleFunc("/retrieve_cr_trn_id", adminHandler.RetrieveCreditLines).Methods(http.MethodGet)
	apis.HandleFunc("/update_status", adminHandler.UpdateStatus).Methods(http.MethodPatch)
	apis.HandleFunc("/confirm_cancel", adminHandler.ConfirmCancel).Methods(http.MethodPatch)

	return router
}

func requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.Printf("%s %s %s %d %s", requestID, r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// bearerAuthMiddleware checks the Authorization header against the single
// process-wide token. Auth failures keep the legacy {"msg": ...} shape.
func bearerAuthMiddleware(token string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				respondWithJSON(w, http.StatusUnauthorized, map[string]string{"msg": "Missing or invalid Authorization header"})
				return
			}
			supplied := strings.TrimPrefix(auth, "Bearer ")
			if token == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) != 1 {
				respondWithJSON(w, http.StatusUnauthorized, map[string]string{"msg": "Invalid token"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"status": "healthy",
	}
	respondWithJSON(w, http.StatusOK, response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithData wraps a payload in the legacy success envelope.
func respondWithData(w http.ResponseWriter, code int, data interface{}, message string) {
	respondWithJSON(w, code, map[string]interface{}{
		"code":    "200",
		"data":    data,
		"message": message,
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Error marshaling JSON response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
