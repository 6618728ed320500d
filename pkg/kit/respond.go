package kit

import (
	"encoding/json"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Response is the envelope every API route answers with.
type Response struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message,omitempty"`
	Order     json.RawMessage `json:"order,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteOK(w http.ResponseWriter, r *http.Request, status int, resp Response) {
	resp.Success = true
	resp.RequestID = chimw.GetReqID(r.Context())
	WriteJSON(w, status, resp)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	WriteJSON(w, status, Response{
		Success:   false,
		Message:   msg,
		RequestID: chimw.GetReqID(r.Context()),
	})
}
