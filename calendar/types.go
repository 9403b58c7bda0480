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

package calendar

import (
	"errors"
)

const (
	MediaType     = "text/calendar"
	FileExtension = ".ics"
)

var (
	ErrMalformedMessage = errors.New("malformed message")
)

// Kind is the calendar component a payload carries.
type Kind int

const (
	KindEvent Kind = 0
	KindTask  Kind = 1
)

// String returns the iCalendar component name, as used in
// supported-calendar-component-set.
func (k Kind) String() string {
	switch k {
	case KindEvent:
		return "VEVENT"
	case KindTask:
		return "VTODO"
	default:
		panic("invalid_kind")
	}
}

type Payload struct {
	Data []byte
	UID  string
	Kind Kind
	// Synthesized is set if the payload had no UID of its own.
	Synthesized bool
}
