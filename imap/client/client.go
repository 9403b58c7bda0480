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

package client

import (
	"net"
	"os"
	"time"

	"github.com/emersion/go-imap/client"
	log "github.com/sirupsen/logrus"

	"github.com/vs49688/calpump/imap"
)

const (
	DefaultDialTimeout    = 30 * time.Second
	DefaultCommandTimeout = 2 * time.Minute
)

// Factory connects with go-imap. Zero timeouts use the defaults.
type Factory struct {
	DialTimeout    time.Duration
	CommandTimeout time.Duration
}

func (f *Factory) dialer() *net.Dialer {
	timeout := f.DialTimeout
	if timeout == 0 {
		timeout = DefaultDialTimeout
	}
	return &net.Dialer{Timeout: timeout}
}

func (f *Factory) NewClient(cfg *imap.ConnectionConfig) (imap.Client, error) {
	e := log.WithFields(log.Fields{"host": cfg.HostPort, "tls": cfg.TLS})

	var c *client.Client
	var err error
	if cfg.TLS {
		c, err = client.DialWithDialerTLS(f.dialer(), cfg.HostPort, cfg.TLSConfig)
	} else {
		c, err = client.DialWithDialer(f.dialer(), cfg.HostPort)
	}

	if err != nil {
		return nil, err
	}

	wantCleanup := true
	defer func() {
		if wantCleanup {
			_ = c.Logout()
		}
	}()

	c.Timeout = f.CommandTimeout
	if c.Timeout == 0 {
		c.Timeout = DefaultCommandTimeout
	}

	if cfg.Debug {
		c.SetDebug(os.Stderr)
	}

	if err := cfg.Auth.Authenticate(c); err != nil {
		e.WithError(err).Debug("imap_auth_failed")
		return nil, err
	}

	e.Debug("imap_connected")

	wantCleanup = false
	return c, nil
}
