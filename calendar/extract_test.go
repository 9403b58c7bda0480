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
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vs49688/calpump/internal"
)

func TestExtractAttachments(t *testing.T) {
	t.Run("by_type_and_filename", func(t *testing.T) {
		raw := internal.BuildTestMessage(t, "<m1@example.com>", "pickleball@natecalvert.org",
			internal.EventAttachment("abc123"),
			internal.TaskAttachment("task-1"),
		)

		payloads, err := ExtractAttachments(bytes.NewReader(raw))
		if !assert.NoError(t, err) {
			t.FailNow()
		}

		if !assert.Len(t, payloads, 2) {
			t.FailNow()
		}
		assert.Equal(t, internal.ICS("VEVENT", "abc123"), string(payloads[0]))
		assert.Equal(t, internal.ICS("VTODO", "task-1"), string(payloads[1]))
	})

	t.Run("uppercase_extension", func(t *testing.T) {
		raw := internal.BuildTestMessage(t, "<m2@example.com>", "to@example.com", internal.TestAttachment{
			ContentType: "application/octet-stream",
			Filename:    "INVITE.ICS",
			Encoding:    "base64",
			Body:        internal.ICS("VEVENT", "upper"),
		})

		payloads, err := ExtractAttachments(bytes.NewReader(raw))
		assert.NoError(t, err)
		assert.Len(t, payloads, 1)
	})

	t.Run("name_parameter", func(t *testing.T) {
		raw := internal.BuildTestMessage(t, "<m3@example.com>", "to@example.com", internal.TestAttachment{
			ContentType: `application/octet-stream; name="meeting.ics"`,
			Encoding:    "base64",
			Body:        internal.ICS("VEVENT", "named"),
		})

		payloads, err := ExtractAttachments(bytes.NewReader(raw))
		assert.NoError(t, err)
		assert.Len(t, payloads, 1)
	})

	t.Run("no_attachments", func(t *testing.T) {
		raw := internal.BuildTestMessage(t, "<m4@example.com>", "to@example.com", internal.TestAttachment{
			ContentType: "application/pdf",
			Filename:    "flyer.pdf",
			Encoding:    "base64",
			Body:        "%PDF-1.4",
		})

		payloads, err := ExtractAttachments(bytes.NewReader(raw))
		assert.NoError(t, err)
		assert.Empty(t, payloads)
	})

	t.Run("empty_part_skipped", func(t *testing.T) {
		raw := internal.BuildTestMessage(t, "<m5@example.com>", "to@example.com",
			internal.TestAttachment{ContentType: "text/calendar", Filename: "empty.ics"},
			internal.EventAttachment("kept"),
		)

		payloads, err := ExtractAttachments(bytes.NewReader(raw))
		assert.NoError(t, err)
		assert.Len(t, payloads, 1)
	})

	t.Run("single_part_message", func(t *testing.T) {
		raw := "From: from@example.com\r\n" +
			"To: to@example.com\r\n" +
			"Content-Type: text/calendar; charset=\"utf-8\"\r\n" +
			"\r\n" +
			internal.ICS("VEVENT", "single")

		payloads, err := ExtractAttachments(strings.NewReader(raw))
		assert.NoError(t, err)
		if assert.Len(t, payloads, 1) {
			assert.Equal(t, internal.ICS("VEVENT", "single"), string(payloads[0]))
		}
	})

	t.Run("nested_multipart", func(t *testing.T) {
		raw := "From: from@example.com\r\n" +
			"Content-Type: multipart/mixed; boundary=outer\r\n" +
			"\r\n" +
			"--outer\r\n" +
			"Content-Type: multipart/alternative; boundary=inner\r\n" +
			"\r\n" +
			"--inner\r\n" +
			"Content-Type: text/plain\r\n" +
			"\r\n" +
			"You are invited.\r\n" +
			"--inner\r\n" +
			"Content-Type: text/calendar; method=REQUEST\r\n" +
			"\r\n" +
			internal.ICS("VEVENT", "nested") +
			"--inner--\r\n" +
			"--outer--\r\n"

		payloads, err := ExtractAttachments(strings.NewReader(raw))
		assert.NoError(t, err)
		if assert.Len(t, payloads, 1) {
			uid, ok := ExtractUID(payloads[0])
			assert.True(t, ok)
			assert.Equal(t, "nested", uid)
		}
	})

	t.Run("attached_message", func(t *testing.T) {
		raw := "From: from@example.com\r\n" +
			"Content-Type: multipart/mixed; boundary=outer\r\n" +
			"\r\n" +
			"--outer\r\n" +
			"Content-Type: text/plain\r\n" +
			"\r\n" +
			"See the forwarded invite.\r\n" +
			"--outer\r\n" +
			"Content-Type: message/rfc822\r\n" +
			"\r\n" +
			"From: organiser@example.com\r\n" +
			"Content-Type: multipart/mixed; boundary=inner\r\n" +
			"\r\n" +
			"--inner\r\n" +
			"Content-Type: text/plain\r\n" +
			"\r\n" +
			"You are invited.\r\n" +
			"--inner\r\n" +
			"Content-Type: text/calendar; method=REQUEST\r\n" +
			"\r\n" +
			internal.ICS("VEVENT", "fwd1") +
			"--inner--\r\n" +
			"--outer--\r\n"

		payloads, err := ExtractAttachments(strings.NewReader(raw))
		if !assert.NoError(t, err) {
			t.FailNow()
		}

		if assert.Len(t, payloads, 1) {
			uid, ok := ExtractUID(payloads[0])
			assert.True(t, ok)
			assert.Equal(t, "fwd1", uid)
		}
	})

	t.Run("broken_part_header", func(t *testing.T) {
		raw := internal.BuildBrokenPartMessage("<m6@example.com>", "to@example.com", "fwd1")

		payloads, err := ExtractAttachments(bytes.NewReader(raw))
		assert.True(t, errors.Is(err, ErrMalformedMessage))
		assert.Nil(t, payloads)
	})

	t.Run("malformed_header", func(t *testing.T) {
		_, err := ExtractAttachments(strings.NewReader("this is not a header\r\n\r\nbody\r\n"))
		assert.Error(t, err)
		assert.True(t, errors.Is(err, ErrMalformedMessage))
	})
}
