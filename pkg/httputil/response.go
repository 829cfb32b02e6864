package httputil

import (
	"encoding/json"
	"net/http"
)

// MessageResponse is the body of every error response: {"message": "..."}
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteMessage writes {"message": message} with the given status code
func WriteMessage(w http.ResponseWriter, status int, message string) {
	_ = WriteJSON(w, status, MessageResponse{Message: message})
}

// WriteErrorMessage writes a JSON error response using the status text as the
// message when message is empty
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	WriteMessage(w, status, message)
}

// WriteUnauthorized writes 401 {"message":"Unauthorized"}
func WriteUnauthorized(w http.ResponseWriter) {
	WriteMessage(w, http.StatusUnauthorized, "Unauthorized")
}

// WriteForbidden writes 403 {"message":"Forbidden"}
func WriteForbidden(w http.ResponseWriter) {
	WriteMessage(w, http.StatusForbidden, "Forbidden")
}

// WriteNotFound writes a not found error response (404)
func WriteNotFound(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusNotFound, "")
}

// WriteMethodNotAllowed writes a method not allowed error response (405)
func WriteMethodNotAllowed(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusMethodNotAllowed, "")
}

// WriteTooManyRequests writes a rate limit error (429)
func WriteTooManyRequests(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusTooManyRequests, "")
}

// WriteInternalError writes an internal server error response (500). The
// underlying error is never echoed to the client.
func WriteInternalError(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusInternalServerError, "")
}

// WriteSuccess writes a successful response (200 OK) with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}
