package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

const maxBody = 64 * 1024

func readJSON(w http.ResponseWriter, r *http.Request, out interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	err := dec.Decode(out)
	if errors.Is(err, io.EOF) {
		return InvalidInput{Field: "body", Reason: "empty"}
	} else if err != nil {
		return InvalidInput{Field: "body", Reason: "malformed json"}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, struct {
		Message string `json:"message"`
	}{Message: msg})
}
