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
	"strings"
)

const upperhex = "0123456789ABCDEF"

func isUnreserved(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') ||
		c == '-' || c == '.' || c == '_' || c == '~'
}

// EscapeUID percent-encodes every byte of uid outside the RFC 3986 unreserved
// set, so the result is always a single path segment.
func EscapeUID(uid string) string {
	var sb strings.Builder
	sb.Grow(len(uid))

	for i := 0; i < len(uid); i++ {
		c := uid[i]
		if isUnreserved(c) {
			sb.WriteByte(c)
			continue
		}

		sb.WriteByte('%')
		sb.WriteByte(upperhex[c>>4])
		sb.WriteByte(upperhex[c&15])
	}

	return sb.String()
}
