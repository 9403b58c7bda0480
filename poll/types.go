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

package poll

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/vs49688/calpump/deliverylog"
	"github.com/vs49688/calpump/imap"
	"github.com/vs49688/calpump/pump"
	"github.com/vs49688/calpump/router"
)

const DefaultMailbox = "INBOX"

var errNoDestination = errors.New("no destination collection")

type Config struct {
	Connection imap.ConnectionConfig
	Factory    imap.Factory
	Pump       *pump.Pump

	// Routes maps envelope recipients to collections. May be nil.
	Routes *router.Table
	// DefaultCollection receives messages with no routed recipient.
	DefaultCollection string

	Log              *deliverylog.Log
	DisableDeletions bool
	Logger           *log.Entry
}

// Summary counts what happened to each message in the mailbox.
type Summary struct {
	Messages      int
	Delivered     int
	Duplicates    int
	NoAttachments int
	Failed        int
	Pushed        int
}

type fetched struct {
	UID        uint32
	Identifier string
	Recipients []string
	Raw        []byte
}
