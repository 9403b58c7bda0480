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
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vs49688/calpump/calendar"
)

func NewHandler(cfg *Config) (*Handler, error) {
	if cfg.Token == "" {
		return nil, errNoToken
	}

	if cfg.Routes == nil || cfg.Routes.Len() == 0 {
		return nil, errNoRoutes
	}

	if cfg.Pump == nil {
		return nil, errNoPump
	}

	h := &Handler{
		token:       []byte(cfg.Token),
		routes:      cfg.Routes,
		pump:        cfg.Pump,
		maxBodySize: cfg.MaxBodySize,
		logger:      cfg.Logger,
	}

	if h.maxBodySize <= 0 {
		h.maxBodySize = DefaultMaxBodySize
	}

	if h.logger == nil {
		h.logger = log.NewEntry(log.StandardLogger())
	}

	engine := gin.New()
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false
	engine.HandleMethodNotAllowed = false
	if err := engine.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	engine.Use(requestLogger(h.logger), gin.Recovery())

	engine.POST(IngestPath, h.ingest)
	engine.GET(HealthPath, func(c *gin.Context) { c.String(http.StatusOK, "OK") })
	engine.NoRoute(func(c *gin.Context) { c.String(http.StatusNotFound, "Not found") })

	h.engine = engine
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.engine.ServeHTTP(w, r)
}

func requestLogger(logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(log.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"latency":     time.Since(start),
			"remote_addr": c.ClientIP(),
		}).Info("ingest_request")
	}
}

func (h *Handler) readBody(c *gin.Context) ([]byte, int, string) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, "Payload too large"
		}
		return nil, http.StatusBadRequest, "Bad request"
	}

	if len(body) == 0 {
		return nil, http.StatusBadRequest, "Empty body"
	}

	return body, 0, ""
}

func (h *Handler) ingest(c *gin.Context) {
	if subtle.ConstantTimeCompare([]byte(c.GetHeader(TokenHeader)), h.token) != 1 {
		h.logger.WithField("remote_addr", c.ClientIP()).Warn("ingest_forbidden")
		c.String(http.StatusForbidden, "Forbidden")
		return
	}

	destination := strings.ToLower(strings.TrimSpace(c.GetHeader(DestinationHeader)))
	if destination == "" {
		c.String(http.StatusBadRequest, "Missing X-Destination header")
		return
	}

	e := h.logger.WithField("destination", destination)

	path, ok := h.routes.Resolve(destination)
	if !ok {
		e.Warn("ingest_destination_unmapped")
		c.String(http.StatusUnprocessableEntity, fmt.Sprintf("No calendar mapped for %v", destination))
		return
	}

	e = e.WithField("collection", path)

	body, status, msg := h.readBody(c)
	if body == nil {
		e.WithField("status", status).Warn("ingest_body_rejected")
		c.String(status, msg)
		return
	}

	payloads, err := calendar.ExtractAttachments(bytes.NewReader(body))
	if err != nil {
		e.WithError(err).Warn("ingest_message_malformed")
		c.String(http.StatusBadRequest, "Malformed email")
		return
	}

	if len(payloads) == 0 {
		e.Info("ingest_no_attachments")
		c.String(http.StatusOK, "OK - no attachments")
		return
	}

	e.WithField("attachments", len(payloads)).Info("ingest_processing")

	report := h.pump.Deliver(c.Request.Context(), path, payloads)
	if !report.OK() {
		e.WithField("failures", report.Failures).Error("ingest_delivery_failed")
		c.String(http.StatusInternalServerError, "Errors: "+report.Error())
		return
	}

	c.String(http.StatusOK, fmt.Sprintf("OK - pushed %d event(s)", report.Pushed))
}
