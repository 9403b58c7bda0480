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
	"context"
	"errors"
	"net"
	"net/http"

	log "github.com/sirupsen/logrus"
)

func NewServer(cfg *ServerConfig) *Server {
	s := &Server{
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           cfg.Handler,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          cfg.Logger,
	}

	if s.srv.ReadHeaderTimeout == 0 {
		s.srv.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}

	if s.srv.ReadTimeout == 0 {
		s.srv.ReadTimeout = DefaultReadTimeout
	}

	if s.srv.WriteTimeout == 0 {
		s.srv.WriteTimeout = DefaultWriteTimeout
	}

	if s.shutdownTimeout == 0 {
		s.shutdownTimeout = DefaultShutdownTimeout
	}

	if s.logger == nil {
		s.logger = log.NewEntry(log.StandardLogger())
	}

	return s
}

// ListenAndServe blocks until the server fails or is shut down. A clean
// shutdown returns nil.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}

	return s.Serve(l)
}

func (s *Server) Serve(l net.Listener) error {
	s.logger.WithField("addr", l.Addr().String()).Info("ingest_listening")

	if err := s.srv.Serve(l); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Shutdown waits for in-flight requests, up to the shutdown timeout.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.logger.Info("ingest_shutting_down")
	return s.srv.Shutdown(ctx)
}
