package internal

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/emersion/go-message"
	"github.com/stretchr/testify/assert"
)

type TestAttachment struct {
	ContentType string
	Filename    string
	Encoding    string
	Body        string
}

// ICS returns a minimal calendar object with the given component and UID.
// An empty uid omits the UID line.
func ICS(component string, uid string) string {
	uidLine := ""
	if uid != "" {
		uidLine = fmt.Sprintf("UID:%v\r\n", uid)
	}

	return "BEGIN:VCALENDAR\r\n" +
		"VERSION:2.0\r\n" +
		"PRODID:-//calpump//test//EN\r\n" +
		fmt.Sprintf("BEGIN:%v\r\n", component) +
		uidLine +
		"DTSTAMP:20240101T120000Z\r\n" +
		"SUMMARY:Open play\r\n" +
		fmt.Sprintf("END:%v\r\n", component) +
		"END:VCALENDAR\r\n"
}

func EventAttachment(uid string) TestAttachment {
	return TestAttachment{
		ContentType: "text/calendar; charset=utf-8; method=PUBLISH",
		Filename:    "invite.ics",
		Encoding:    "base64",
		Body:        ICS("VEVENT", uid),
	}
}

func TaskAttachment(uid string) TestAttachment {
	return TestAttachment{
		ContentType: "application/octet-stream",
		Filename:    "task.ics",
		Encoding:    "quoted-printable",
		Body:        ICS("VTODO", uid),
	}
}

// BuildTestMessage builds a multipart/mixed message with a plain text body and
// the given attachments.
func BuildTestMessage(t *testing.T, messageID string, to string, attachments ...TestAttachment) []byte {
	hdr := message.Header{}
	hdr.Add("From", "from@example.com")
	hdr.Add("To", to)
	hdr.Add("Subject", "Test Email")
	hdr.Add("Date", "Wed, 11 May 2016 14:31:59 +0000")
	hdr.Add("Message-ID", messageID)
	hdr.Add("MIME-Version", "1.0")
	hdr.SetContentType("multipart/mixed", nil)

	bb := new(bytes.Buffer)
	w, err := message.CreateWriter(bb, hdr)
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	textHdr := message.Header{}
	textHdr.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	writePart(t, w, textHdr, "See attached.\r\n")

	for _, a := range attachments {
		partHdr := message.Header{}
		partHdr.Set("Content-Type", a.ContentType)
		if a.Filename != "" {
			partHdr.SetContentDisposition("attachment", map[string]string{"filename": a.Filename})
		}
		if a.Encoding != "" {
			partHdr.Set("Content-Transfer-Encoding", a.Encoding)
		}
		writePart(t, w, partHdr, a.Body)
	}

	if !assert.NoError(t, w.Close()) {
		t.FailNow()
	}

	return bb.Bytes()
}

func writePart(t *testing.T, w *message.Writer, hdr message.Header, body string) {
	pw, err := w.CreatePart(hdr)
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	_, err = pw.Write([]byte(body))
	assert.NoError(t, err)
	assert.NoError(t, pw.Close())
}

// BuildBrokenPartMessage builds a multipart/mixed message whose first part has an
// unparseable header line, followed by a valid text/calendar part.
func BuildBrokenPartMessage(messageID string, to string, uid string) []byte {
	return []byte("From: from@example.com\r\n" +
		fmt.Sprintf("To: %v\r\n", to) +
		fmt.Sprintf("Message-Id: %v\r\n", messageID) +
		"Content-Type: multipart/mixed; boundary=outer\r\n" +
		"\r\n" +
		"--outer\r\n" +
		"Content-Type: text/plain\r\n" +
		"this is a broken header line\r\n" +
		"\r\n" +
		"hello\r\n" +
		"--outer\r\n" +
		"Content-Type: text/calendar\r\n" +
		"\r\n" +
		ICS("VEVENT", uid) +
		"--outer--\r\n")
}
