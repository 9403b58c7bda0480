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
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
)

const attachedMessageType = "message/rfc822"

// ExtractAttachments walks a raw RFC 822 message and returns the decoded body of
// every part that is text/calendar or carries a .ics filename, descending into
// nested multiparts and attached messages. A message without any such part
// yields no payloads and no error. A message whose structure can't be read to
// the end is ErrMalformedMessage, so a calendar part behind the damage is never
// mistaken for an absent one.
func ExtractAttachments(r io.Reader) ([][]byte, error) {
	entity, err := message.Read(r)
	if entity == nil || (err != nil && !isRecoverable(err)) {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	var payloads [][]byte
	if err := walk(entity, &payloads); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return payloads, nil
}

// Unknown charsets and transfer encodings leave the body undecoded, which is
// still usable.
func isRecoverable(err error) bool {
	return message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)
}

func walk(e *message.Entity, payloads *[][]byte) error {
	if mr := e.MultipartReader(); mr != nil {
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return nil
			} else if err != nil && (part == nil || !isRecoverable(err)) {
				return err
			}

			if err := walk(part, payloads); err != nil {
				return err
			}
		}
	}

	mediaType, _, _ := e.Header.ContentType()
	if strings.EqualFold(mediaType, attachedMessageType) {
		inner, err := message.Read(e.Body)
		if inner == nil || (err != nil && !isRecoverable(err)) {
			return err
		}
		return walk(inner, payloads)
	}

	if !isCalendarPart(e) {
		return nil
	}

	body, err := io.ReadAll(e.Body)
	if err != nil {
		return err
	}

	if len(body) > 0 {
		*payloads = append(*payloads, body)
	}
	return nil
}

func isCalendarPart(e *message.Entity) bool {
	mediaType, params, _ := e.Header.ContentType()
	if strings.EqualFold(mediaType, MediaType) {
		return true
	}

	return strings.HasSuffix(strings.ToLower(filename(e.Header, params)), FileExtension)
}

func filename(h message.Header, ctParams map[string]string) string {
	if _, params, err := h.ContentDisposition(); err == nil {
		if name := params["filename"]; name != "" {
			return name
		}
	}

	return ctParams["name"]
}
