package api

import (
	"encoding/json"
	"net/http"
)

// envelope is the success shape every endpoint returns
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message,omitempty"`
	Count   *int        `json:"count,omitempty"`
}

// errorBody is the failure shape, a single detail string
type errorBody struct {
	Detail string `json:"detail"`
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondData(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, envelope{Success: true, Data: data})
}

func respondMessage(w http.ResponseWriter, status int, data interface{}, message string) {
	respondJSON(w, status, envelope{Success: true, Data: data, Message: message})
}

func respondList(w http.ResponseWriter, status int, data interface{}, count int) {
	respondJSON(w, status, envelope{Success: true, Data: data, Count: &count})
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, errorBody{Detail: detail})
}
