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

package caldav

import (
	"errors"
	"fmt"
	"time"

	"github.com/emersion/go-webdav"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTimeout        = 30 * time.Second
	DefaultUserAgent      = "calpump/1.0"
	DefaultBreakerTimeout = 30 * time.Second

	calendarContentType = "text/calendar; charset=utf-8"
	xmlContentType      = "application/xml"
	methodMkcol         = "MKCOL"
)

var (
	errInvalidScheme = errors.New("invalid caldav url scheme")
	errServerStatus  = errors.New("server error status")
)

type Config struct {
	BaseURL  string
	Username string
	Password string

	// Timeout bounds each request, including reading the response.
	Timeout   time.Duration
	UserAgent string

	// BreakerThreshold is the number of consecutive transport errors or 5xx
	// responses after which requests fail fast for BreakerTimeout. Zero
	// disables the breaker.
	BreakerThreshold uint32
	BreakerTimeout   time.Duration

	Logger *log.Entry

	// HTTPClient replaces the default transport. Timeout is ignored if set.
	HTTPClient webdav.HTTPClient
}

type Result int

const (
	ResultFailed  Result = 0
	ResultExists  Result = 1
	ResultCreated Result = 2
	ResultStored  Result = 3
)

func (r Result) String() string {
	switch r {
	case ResultFailed:
		return "failed"
	case ResultExists:
		return "exists"
	case ResultCreated:
		return "created"
	case ResultStored:
		return "stored"
	default:
		panic("invalid_result")
	}
}

// Outcome is the result of a remote operation. Status is zero if no response
// was received.
type Outcome struct {
	Result Result
	URL    string
	Status int
	Reason string
}

func (o Outcome) OK() bool {
	return o.Result != ResultFailed
}

func (o Outcome) String() string {
	if o.Status == 0 {
		return fmt.Sprintf("%v: %v", o.Result, o.Reason)
	}
	return fmt.Sprintf("%v: HTTP %d %v", o.Result, o.Status, o.Reason)
}

type Client struct {
	baseURL   string
	http      webdav.HTTPClient
	userAgent string
	logger    *log.Entry
}
