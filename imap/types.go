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

package imap

import (
	"crypto/tls"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-sasl"
)

//go:generate mockgen -destination mocks/mock_imap.go -package mock_imap github.com/vs49688/calpump/imap Client,Factory,Authenticatable

// Client is the subset of *client.Client used by the mailbox poll.
type Client interface {
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)

	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)

	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error

	UidStore(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error

	Expunge(ch chan uint32) error

	Logout() error
}

// Authenticatable is anything that can be logged into. *client.Client is one.
type Authenticatable interface {
	Login(username string, password string) error

	Authenticate(auth sasl.Client) error
}

type Authenticator interface {
	Authenticate(c Authenticatable) error
}

type ConnectionConfig struct {
	HostPort  string
	Auth      Authenticator
	Mailbox   string
	TLS       bool
	TLSConfig *tls.Config
	Debug     bool
}

// Factory returns connected and authenticated clients.
type Factory interface {
	NewClient(cfg *ConnectionConfig) (Client, error)
}

type Message = imap.Message
type SeqSet = imap.SeqSet
type StoreItem = imap.StoreItem
type MailboxStatus = imap.MailboxStatus
type FetchItem = imap.FetchItem
type SearchCriteria = imap.SearchCriteria
