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
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vs49688/calpump/pump"
	"github.com/vs49688/calpump/router"
)

const (
	IngestPath = "/ingest"
	HealthPath = "/health"

	TokenHeader       = "X-Ingest-Token"
	DestinationHeader = "X-Destination"

	DefaultMaxBodySize int64 = 25 << 20

	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultReadTimeout       = time.Minute
	DefaultWriteTimeout      = 5 * time.Minute
	DefaultShutdownTimeout   = 30 * time.Second
)

var (
	errNoToken  = errors.New("ingest token is required")
	errNoRoutes = errors.New("routing table is required")
	errNoPump   = errors.New("pump is required")
)

type Config struct {
	// Token is the shared secret expected in X-Ingest-Token.
	Token       string
	Routes      *router.Table
	Pump        *pump.Pump
	MaxBodySize int64
	Logger      *log.Entry
}

type Handler struct {
	engine      *gin.Engine
	token       []byte
	routes      *router.Table
	pump        *pump.Pump
	maxBodySize int64
	logger      *log.Entry
}

type ServerConfig struct {
	Addr              string
	Handler           http.Handler
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	ShutdownTimeout   time.Duration
	Logger            *log.Entry
}

type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
	logger          *log.Entry
}
