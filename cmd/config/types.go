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

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vs49688/calpump/caldav"
	"github.com/vs49688/calpump/imap"
	"github.com/vs49688/calpump/router"
)

var (
	errInvalidScheme = errors.New("invalid uri scheme")
	errNoCollection  = errors.New("at least one of POLL_COLLECTION or CALENDAR_MAP is required")
	errInvalidPort   = errors.New("invalid INGEST_PORT")
)

// MissingKeysError lists every required key absent from both the config file
// and the environment.
type MissingKeysError struct {
	Keys []string
}

func (e *MissingKeysError) Error() string {
	return fmt.Sprintf("missing required configuration keys: %v", strings.Join(e.Keys, ", "))
}

// Env is the flat KEY=value configuration, backed by the process environment.
type Env struct {
	path    string
	values  map[string]string
	lookup  func(string) (string, bool)
	missing []string
}

type IMAPConfig struct {
	URL           string
	AuthMethod    string
	Username      string
	Password      string
	PasswordFile  string
	TLSSkipVerify bool
	Debug         bool
}

type CliConfig struct {
	ConfigFile       string
	LogLevel         string
	LogFormat        string
	Timeout          time.Duration
	BreakerThreshold uint
	BreakerTimeout   time.Duration
	MaxBodySize      int64
	DisableDeletions bool
	IMAPDebug        bool
}

type ServeConfig struct {
	Addr   string
	Token  string
	CalDAV caldav.Config
	Routes *router.Table
}

type PollConfig struct {
	Connection        imap.ConnectionConfig
	CalDAV            caldav.Config
	Routes            *router.Table
	DefaultCollection string
	LogPath           string
}
