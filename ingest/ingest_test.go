/*
 * CalPump - Copyright (C) 2022 Zane van Iperen.
 *    Contact: zane@zanevaniperen.com
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 2, and only
 * version 2 as published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program; if not, write to the Free Software
 * Foundation, Inc., 59 Temple Place, Suite 330, Boston, MA  02111-1307  USA
 */

package ingest

import (
	"bytes"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/vs49688/calpump/caldav"
	"github.com/vs49688/calpump/internal"
	"github.com/vs49688/calpump/pump"
	"github.com/vs49688/calpump/router"
)

const testToken = "s3cret"

func init() {
	gin.SetMode(gin.TestMode)
}

func buildTestHandler(t *testing.T, srv *internal.CalDAVServer, maxBodySize int64) *Handler {
	remote, err := caldav.NewClient(&caldav.Config{
		BaseURL:  srv.URL,
		Username: "username",
		Password: "password",
	})
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	routes, err := router.Parse("pickleball@natecalvert.org:/nate/bounce_calendar/,tasks@natecalvert.org:/nate/tasks")
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	h, err := NewHandler(&Config{
		Token:       testToken,
		Routes:      routes,
		Pump:        pump.NewPump(&pump.Config{Remote: remote, UIDPrefix: "ingest"}),
		MaxBodySize: maxBodySize,
	})
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	return h
}

func post(h http.Handler, token string, destination string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, IngestPath, bytes.NewReader(body))
	req.Header.Set("Content-Type", "message/rfc822")
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}
	if destination != "" {
		req.Header.Set(DestinationHeader, destination)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestNewHandler(t *testing.T) {
	routes, _ := router.Parse("a@b.c:/a/")
	p := pump.NewPump(&pump.Config{})

	_, err := NewHandler(&Config{Routes: routes, Pump: p})
	assert.ErrorIs(t, err, errNoToken)

	_, err = NewHandler(&Config{Token: testToken, Pump: p})
	assert.ErrorIs(t, err, errNoRoutes)

	_, err = NewHandler(&Config{Token: testToken, Routes: routes})
	assert.ErrorIs(t, err, errNoPump)
}

func TestHandler_Routes(t *testing.T) {
	srv := internal.BuildTestCalDAVServer(t)
	h := buildTestHandler(t, srv, 0)

	do := func(method string, path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w
	}

	w := do(http.MethodGet, HealthPath)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, HealthPath},
		{http.MethodGet, IngestPath},
		{http.MethodPost, "/ingest/"},
		{http.MethodPost, "/other"},
		{http.MethodGet, "/"},
	} {
		w := do(tc.method, tc.path)
		assert.Equal(t, http.StatusNotFound, w.Code, "%v %v", tc.method, tc.path)
		assert.Equal(t, "Not found", w.Body.String())
	}

	assert.Empty(t, srv.Requests())
}

func TestHandler_Rejections(t *testing.T) {
	body := internal.BuildTestMessage(t, "<m1@example.com>", "pickleball@natecalvert.org", internal.EventAttachment("abc123"))

	tests := []struct {
		name        string
		token       string
		destination string
		body        []byte
		code        int
		message     string
	}{
		{"no_token", "", "pickleball@natecalvert.org", body, http.StatusForbidden, "Forbidden"},
		{"bad_token", "s3cre", "pickleball@natecalvert.org", body, http.StatusForbidden, "Forbidden"},
		{"no_destination", testToken, "", body, http.StatusBadRequest, "Missing X-Destination header"},
		{"blank_destination", testToken, "   ", body, http.StatusBadRequest, "Missing X-Destination header"},
		{"unmapped", testToken, "nobody@example.org", body, http.StatusUnprocessableEntity, "No calendar mapped for nobody@example.org"},
		{"unmapped_normalized", testToken, " Nobody@Example.ORG ", body, http.StatusUnprocessableEntity, "No calendar mapped for nobody@example.org"},
		{"empty_body", testToken, "pickleball@natecalvert.org", nil, http.StatusBadRequest, "Empty body"},
		{"malformed", testToken, "pickleball@natecalvert.org", []byte("this is not a header\r\n\r\nbody\r\n"), http.StatusBadRequest, "Malformed email"},
		{"broken_part", testToken, "pickleball@natecalvert.org", internal.BuildBrokenPartMessage("<m2@example.com>", "pickleball@natecalvert.org", "fwd1"), http.StatusBadRequest, "Malformed email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := internal.BuildTestCalDAVServer(t)
			h := buildTestHandler(t, srv, 0)

			w := post(h, tt.token, tt.destination, tt.body)
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.message, w.Body.String())
			assert.Empty(t, srv.Requests())
		})
	}

	t.Run("too_large", func(t *testing.T) {
		srv := internal.BuildTestCalDAVServer(t)
		h := buildTestHandler(t, srv, 64)

		w := post(h, testToken, "pickleball@natecalvert.org", body)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, "Payload too large", w.Body.String())
		assert.Empty(t, srv.Requests())
	})
}

func TestHandler_Ingest(t *testing.T) {
	t.Run("pickleball", func(t *testing.T) {
		srv := internal.BuildTestCalDAVServer(t)
		h := buildTestHandler(t, srv, 0)

		data := internal.ICS("VEVENT", "abc123")
		body := internal.BuildTestMessage(t, "<m1@example.com>", "pickleball@natecalvert.org", internal.EventAttachment("abc123"))

		w := post(h, testToken, "pickleball@natecalvert.org", body)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK - pushed 1 event(s)", w.Body.String())

		assert.Equal(t, map[string]string{"/nate/bounce_calendar/": "VEVENT"}, srv.Collections())
		assert.Equal(t, map[string][]byte{"/nate/bounce_calendar/abc123.ics": []byte(data)}, srv.Objects())

		puts := srv.RequestsFor(http.MethodPut)
		if assert.Len(t, puts, 1) {
			assert.Equal(t, "/nate/bounce_calendar/abc123.ics", puts[0].Path)
			assert.Equal(t, "text/calendar; charset=utf-8", puts[0].ContentType)
		}
	})

	t.Run("idempotent_repost", func(t *testing.T) {
		srv := internal.BuildTestCalDAVServer(t)
		h := buildTestHandler(t, srv, 0)

		body := internal.BuildTestMessage(t, "<m1@example.com>", "pickleball@natecalvert.org", internal.EventAttachment("abc123"))

		assert.Equal(t, http.StatusOK, post(h, testToken, "pickleball@natecalvert.org", body).Code)
		once := srv.Objects()

		w := post(h, testToken, "Pickleball@NateCalvert.org", body)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK - pushed 1 event(s)", w.Body.String())
		assert.Equal(t, once, srv.Objects())
		assert.Len(t, srv.Collections(), 1)
		assert.Len(t, srv.RequestsFor("MKCOL"), 1)
	})

	t.Run("mixed_kinds", func(t *testing.T) {
		srv := internal.BuildTestCalDAVServer(t)
		h := buildTestHandler(t, srv, 0)

		body := internal.BuildTestMessage(t, "<m1@example.com>", "tasks@natecalvert.org",
			internal.EventAttachment("abc123"), internal.TaskAttachment("todo1"))

		w := post(h, testToken, "tasks@natecalvert.org", body)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK - pushed 2 event(s)", w.Body.String())

		// Each payload ensures the collection for its own kind.
		assert.Len(t, srv.RequestsFor(http.MethodGet), 2)
		// One path per route: the first kind creates it and the second finds it.
		assert.Equal(t, map[string]string{"/nate/tasks/": "VEVENT"}, srv.Collections())

		objects := srv.Objects()
		assert.Len(t, objects, 2)
		assert.Contains(t, objects, "/nate/tasks/abc123.ics")
		assert.Contains(t, objects, "/nate/tasks/todo1.ics")
	})

	t.Run("missing_uid", func(t *testing.T) {
		srv := internal.BuildTestCalDAVServer(t)
		h := buildTestHandler(t, srv, 0)

		body := internal.BuildTestMessage(t, "<m1@example.com>", "pickleball@natecalvert.org", internal.EventAttachment(""))

		w := post(h, testToken, "pickleball@natecalvert.org", body)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK - pushed 1 event(s)", w.Body.String())

		puts := srv.RequestsFor(http.MethodPut)
		if assert.Len(t, puts, 1) {
			assert.Regexp(t, `^/nate/bounce_calendar/ingest-\d{8}T\d{6}Z-[0-9a-f]{8}\.ics$`, puts[0].Path)
		}
	})

	t.Run("no_attachments", func(t *testing.T) {
		srv := internal.BuildTestCalDAVServer(t)
		h := buildTestHandler(t, srv, 0)

		body := internal.BuildTestMessage(t, "<m1@example.com>", "pickleball@natecalvert.org")

		w := post(h, testToken, "pickleball@natecalvert.org", body)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK - no attachments", w.Body.String())
		assert.Empty(t, srv.Requests())
	})

	t.Run("collection_failure", func(t *testing.T) {
		srv := internal.BuildTestCalDAVServer(t)
		srv.Fail("MKCOL", "/nate/bounce_calendar/", http.StatusInsufficientStorage)
		h := buildTestHandler(t, srv, 0)

		body := internal.BuildTestMessage(t, "<m1@example.com>", "pickleball@natecalvert.org",
			internal.EventAttachment("abc123"), internal.EventAttachment("def456"))

		w := post(h, testToken, "pickleball@natecalvert.org", body)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Errors: Cannot ensure collection /nate/bounce_calendar/; Cannot ensure collection /nate/bounce_calendar/", w.Body.String())
		assert.Empty(t, srv.RequestsFor(http.MethodPut))
	})

	t.Run("push_failure_attempts_all", func(t *testing.T) {
		srv := internal.BuildTestCalDAVServer(t)
		srv.Fail(http.MethodPut, "/nate/tasks/abc123.ics", http.StatusForbidden)
		h := buildTestHandler(t, srv, 0)

		body := internal.BuildTestMessage(t, "<m1@example.com>", "tasks@natecalvert.org",
			internal.EventAttachment("abc123"), internal.TaskAttachment("todo1"))

		w := post(h, testToken, "tasks@natecalvert.org", body)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Errors: Failed to push UID abc123", w.Body.String())
		assert.Equal(t, map[string][]byte{"/nate/tasks/todo1.ics": []byte(internal.ICS("VTODO", "todo1"))}, srv.Objects())
	})
}

func TestServer(t *testing.T) {
	srv := internal.BuildTestCalDAVServer(t)
	h := buildTestHandler(t, srv, 0)

	l, err := net.Listen("tcp", "localhost:0")
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	s := NewServer(&ServerConfig{Handler: h})

	done := make(chan error, 1)
	go func() { done <- s.Serve(l) }()

	resp, err := http.Get("http://" + l.Addr().String() + HealthPath)
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	b, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(b))

	assert.NoError(t, s.Shutdown())
	assert.NoError(t, <-done)
}
