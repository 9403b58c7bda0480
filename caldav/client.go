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
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/emersion/go-webdav"
	log "github.com/sirupsen/logrus"

	"github.com/vs49688/calpump/calendar"
)

func NewClient(cfg *Config) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errInvalidScheme
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}

	var httpClient = cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	if cfg.BreakerThreshold > 0 {
		breakerTimeout := cfg.BreakerTimeout
		if breakerTimeout == 0 {
			breakerTimeout = DefaultBreakerTimeout
		}
		httpClient = newBreakerClient(httpClient, cfg.BreakerThreshold, breakerTimeout, logger)
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		http:      webdav.HTTPClientWithBasicAuth(httpClient, cfg.Username, cfg.Password),
		userAgent: userAgent,
		logger:    logger,
	}, nil
}

// URL resolves a collection or object path against the base URL.
func (c *Client) URL(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// ObjectURL is the location of the object with the given UID in a collection.
func (c *Client) ObjectURL(path string, uid string) string {
	return strings.TrimRight(c.URL(path), "/") + "/" + EscapeUID(uid) + calendar.FileExtension
}

func (c *Client) do(ctx context.Context, method string, u string, body []byte, contentType string) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	// Only the status is of interest.
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp, nil
}

func reason(resp *http.Response) string {
	prefix := strconv.Itoa(resp.StatusCode) + " "
	if strings.HasPrefix(resp.Status, prefix) {
		return strings.TrimPrefix(resp.Status, prefix)
	}
	return http.StatusText(resp.StatusCode)
}

func failed(u string, resp *http.Response, err error) Outcome {
	if resp == nil {
		return Outcome{Result: ResultFailed, URL: u, Reason: err.Error()}
	}
	return Outcome{Result: ResultFailed, URL: u, Status: resp.StatusCode, Reason: reason(resp)}
}

func mkcolBody(kind calendar.Kind) []byte {
	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<mkcol xmlns="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <set><prop>
    <resourcetype><collection/><C:calendar/></resourcetype>
    <C:supported-calendar-component-set>
      <C:comp name="%v"/>
    </C:supported-calendar-component-set>
  </prop></set>
</mkcol>`, kind))
}

// Ensure makes sure a collection for the given component kind exists at path.
// Anything but a 404 on the probe counts as present. A 403 or 405 on creation
// means someone else created it first, or the server won't let us, and also
// counts as present.
func (c *Client) Ensure(ctx context.Context, path string, kind calendar.Kind) Outcome {
	u := c.URL(path)
	e := c.logger.WithFields(log.Fields{"url": u, "component": kind})

	resp, err := c.do(ctx, http.MethodGet, u, nil, "")
	if err != nil {
		e.WithError(err).Error("caldav_probe_failed")
		return failed(u, nil, err)
	}

	if resp.StatusCode != http.StatusNotFound {
		e.WithField("status", resp.StatusCode).Debug("caldav_collection_exists")
		return Outcome{Result: ResultExists, URL: u, Status: resp.StatusCode, Reason: reason(resp)}
	}

	resp, err = c.do(ctx, methodMkcol, u, mkcolBody(kind), xmlContentType)
	if err != nil {
		e.WithError(err).Error("caldav_mkcol_failed")
		return failed(u, nil, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		e.WithField("status", resp.StatusCode).Info("caldav_collection_created")
		return Outcome{Result: ResultCreated, URL: u, Status: resp.StatusCode, Reason: reason(resp)}
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusMethodNotAllowed:
		e.WithField("status", resp.StatusCode).Debug("caldav_collection_exists")
		return Outcome{Result: ResultExists, URL: u, Status: resp.StatusCode, Reason: reason(resp)}
	default:
		e.WithFields(log.Fields{"status": resp.StatusCode, "reason": reason(resp)}).Error("caldav_mkcol_failed")
		return failed(u, resp, nil)
	}
}

// Push stores a calendar object under its UID, replacing any previous version.
// Pushing the same object twice leaves the server in the same state as once.
func (c *Client) Push(ctx context.Context, path string, uid string, data []byte) Outcome {
	u := c.ObjectURL(path, uid)
	e := c.logger.WithFields(log.Fields{"url": u, "uid": uid})

	resp, err := c.do(ctx, http.MethodPut, u, data, calendarContentType)
	if err != nil {
		e.WithError(err).Error("caldav_put_failed")
		return failed(u, nil, err)
	}

	switch resp.StatusCode {
	case http.StatusCreated:
		e.WithField("status", resp.StatusCode).Info("caldav_put_succeeded")
		return Outcome{Result: ResultCreated, URL: u, Status: resp.StatusCode, Reason: reason(resp)}
	case http.StatusOK, http.StatusNoContent:
		e.WithField("status", resp.StatusCode).Info("caldav_put_succeeded")
		return Outcome{Result: ResultStored, URL: u, Status: resp.StatusCode, Reason: reason(resp)}
	default:
		e.WithFields(log.Fields{"status": resp.StatusCode, "reason": reason(resp)}).Error("caldav_put_failed")
		return failed(u, resp, nil)
	}
}
