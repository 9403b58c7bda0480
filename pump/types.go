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

package pump

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vs49688/calpump/caldav"
	"github.com/vs49688/calpump/calendar"
)

//go:generate mockgen -destination mocks/mock_pump.go -package mock_pump github.com/vs49688/calpump/pump Remote

// Remote is the CalDAV side of the pump. *caldav.Client implements it.
type Remote interface {
	Ensure(ctx context.Context, path string, kind calendar.Kind) caldav.Outcome
	Push(ctx context.Context, path string, uid string, data []byte) caldav.Outcome
}

type Config struct {
	Remote Remote
	// UIDPrefix names the caller in synthesized UIDs.
	UIDPrefix string
	Now       func() time.Time
	Logger    *log.Entry
}

type Delivery struct {
	UID         string
	Kind        calendar.Kind
	Synthesized bool
	Collection  caldav.Outcome
	Object      caldav.Outcome
}

// Report describes the delivery of every payload of one message.
type Report struct {
	Pushed     int
	Failures   []string
	Deliveries []Delivery
}

type Pump struct {
	remote    Remote
	uidPrefix string
	now       func() time.Time
	logger    *log.Entry
}
