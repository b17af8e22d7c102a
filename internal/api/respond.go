package api

import (
	"encoding/json"
	"net/http"

	"github.com/Shadcn-Component-Manager/web/internal/errors"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// response is a handler result before encoding.
type response struct {
	status int
	header http.Header
	body   any
}

func ok(body any) *response {
	return &response{status: http.StatusOK, body: body}
}

// apiFunc handles a request. A returned error is rendered as an error body.
// Handlers may set headers on w but must not write the body.
type apiFunc func(w http.ResponseWriter, r *http.Request) (*response, error)

// serve adapts an apiFunc to an http.HandlerFunc.
func (s *Server) serve(fn apiFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := fn(w, r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		data, err := encode(resp.body)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		copyHeader(w.Header(), resp.header)
		writeRaw(w, resp.status, data)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := errors.FromError(err, "E100")
	status := e.HTTPStatus()
	if status >= http.StatusInternalServerError {
		s.logger.Error(e.Message, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody{Error: e.Title(), Message: e.Message})
}

func encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := encode(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeRaw(w, status, data)
}

func writeRaw(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func copyHeader(dst, src http.Header) {
	for k, vs := range src {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}
