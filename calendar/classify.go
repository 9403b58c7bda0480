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
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const fallbackTimeFormat = "20060102T150405Z"

func lines(data []byte) []string {
	text := strings.ToValidUTF8(string(data), "\uFFFD")
	return strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' })
}

// DetectKind returns KindTask if any line is exactly BEGIN:VTODO, KindEvent otherwise.
// A payload holding both VEVENT and VTODO blocks is a task.
func DetectKind(data []byte) Kind {
	for _, line := range lines(data) {
		if strings.TrimSpace(line) == "BEGIN:VTODO" {
			return KindTask
		}
	}

	return KindEvent
}

// ExtractUID returns the value of the first line starting with "UID:".
func ExtractUID(data []byte) (string, bool) {
	for _, line := range lines(data) {
		if strings.HasPrefix(line, "UID:") {
			uid := strings.TrimSpace(line[4:])
			return uid, uid != ""
		}
	}

	return "", false
}

// FallbackUID builds an identifier for payloads without a UID. The random
// suffix keeps two payloads synthesized within the same second apart.
func FallbackUID(prefix string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%v-%v-%v", prefix, now.UTC().Format(fallbackTimeFormat), suffix)
}

func Classify(data []byte, prefix string, now time.Time) Payload {
	p := Payload{
		Data: data,
		Kind: DetectKind(data),
	}

	if uid, ok := ExtractUID(data); ok {
		p.UID = uid
	} else {
		p.UID = FallbackUID(prefix, now)
		p.Synthesized = true
	}

	return p
}
