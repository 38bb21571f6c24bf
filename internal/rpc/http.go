package rpc

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"go.klb.dev/recall/internal/message"
	"go.klb.dev/recall/internal/wire"
)

// HTTPHandler serves a read-only JSON view of the history for clients that
// do not speak gRPC:
//
//	GET /v1/items            stored order; ?view=display pins first; ?q= searches
//	GET /v1/items/{id}       one item, 404 with found=false when missing
//	GET /v1/status           daemon status
func HTTPHandler(s *Service) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/items", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if query := q.Get("q"); query != "" {
			resp, _ := s.Search(r.Context(), &message.SearchRequest{Query: query})
			writeJSON(w, http.StatusOK, resp)
			return
		}
		view, err := message.ParseView(q.Get("view"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, message.NewItemsResponse(s.items(view)))
	})

	mux.HandleFunc("GET /v1/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		resp := message.NewItemResponse(s.e.Store().Get(r.PathValue("id")))
		code := http.StatusOK
		if !resp.Found {
			code = http.StatusNotFound
		}
		writeJSON(w, code, resp)
	})

	mux.HandleFunc("GET /v1/status", func(w http.ResponseWriter, r *http.Request) {
		resp, _ := s.Status(r.Context(), &message.Empty{})
		writeJSON(w, http.StatusOK, resp)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", wire.ContentType)
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("http: writing response failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
