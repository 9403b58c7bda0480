package internal

import (
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
)

var compPattern = regexp.MustCompile(`comp name="([A-Z]+)"`)

type CalDAVRequest struct {
	Method      string
	Path        string
	ContentType string
	Body        []byte
}

// CalDAVServer is a minimal Radicale stand-in. Collections are created by MKCOL,
// objects by PUT, and GET only distinguishes existing collections from missing ones.
type CalDAVServer struct {
	*httptest.Server

	mu          sync.Mutex
	collections map[string]string
	objects     map[string][]byte
	requests    []CalDAVRequest
	failures    map[string]int
}

func BuildTestCalDAVServer(t *testing.T) *CalDAVServer {
	s := &CalDAVServer{
		collections: map[string]string{},
		objects:     map[string][]byte{},
		failures:    map[string]int{},
	}

	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	t.Cleanup(s.Close)
	return s
}

// Fail makes every request with the given method and escaped path return status.
func (s *CalDAVServer) Fail(method string, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = status
}

func (s *CalDAVServer) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = map[string]int{}
}

func (s *CalDAVServer) AddCollection(path string, component string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[path] = component
}

func (s *CalDAVServer) Collections() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.collections))
	for k, v := range s.collections {
		out[k] = v
	}
	return out
}

func (s *CalDAVServer) Objects() map[string][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]byte, len(s.objects))
	for k, v := range s.objects {
		out[k] = v
	}
	return out
}

func (s *CalDAVServer) Requests() []CalDAVRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CalDAVRequest(nil), s.requests...)
}

func (s *CalDAVServer) RequestsFor(method string) []CalDAVRequest {
	var out []CalDAVRequest
	for _, r := range s.Requests() {
		if r.Method == method {
			out = append(out, r)
		}
	}
	return out
}

func collectionOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i+1]
		}
	}
	return "/"
}

func (s *CalDAVServer) serveHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	path := r.URL.EscapedPath()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, CalDAVRequest{
		Method:      r.Method,
		Path:        path,
		ContentType: r.Header.Get("Content-Type"),
		Body:        body,
	})

	if user, pass, ok := r.BasicAuth(); !ok || user != "username" || pass != "password" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	if status, ok := s.failures[r.Method+" "+path]; ok {
		w.WriteHeader(status)
		return
	}

	switch r.Method {
	case http.MethodGet:
		if _, ok := s.collections[path]; ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		if _, ok := s.objects[path]; ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	case "MKCOL":
		if _, ok := s.collections[path]; ok {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		component := ""
		if m := compPattern.FindSubmatch(body); m != nil {
			component = string(m[1])
		}
		s.collections[path] = component
		w.WriteHeader(http.StatusCreated)
	case http.MethodPut:
		if _, ok := s.collections[collectionOf(path)]; !ok {
			w.WriteHeader(http.StatusConflict)
			return
		}
		_, existed := s.objects[path]
		s.objects[path] = body
		if existed {
			w.WriteHeader(http.StatusNoContent)
		} else {
			w.WriteHeader(http.StatusCreated)
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
