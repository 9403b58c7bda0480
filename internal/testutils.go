package internal

import (
	"net"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/server"
	"github.com/stretchr/testify/assert"
)

func BuildTestIMAPServer(t *testing.T) (*server.Server, string, *memory.Mailbox) {
	be := memory.New()
	user, err := be.Login(nil, "username", "password")
	assert.NoError(t, err)
	if err != nil {
		t.FailNow()
	}

	mb, err := user.GetMailbox("INBOX")
	assert.NoError(t, err)
	if err != nil {
		t.FailNow()
	}

	mailbox := mb.(*memory.Mailbox)
	mailbox.Messages = nil

	s := server.New(be)
	t.Cleanup(func() { _ = s.Close() })

	s.AllowInsecureAuth = true

	l, err := net.Listen("tcp", "localhost:0")
	assert.NoError(t, err)
	if err != nil {
		t.FailNow()
	}

	go func() { err = s.Serve(l) }()

	return s, l.Addr().String(), mailbox
}

// AddTestMessage appends a raw message to a memory mailbox, allocating the next UID.
func AddTestMessage(mailbox *memory.Mailbox, body []byte) uint32 {
	var uid uint32 = 1
	if n := len(mailbox.Messages); n > 0 {
		uid = mailbox.Messages[n-1].Uid + 1
	}

	mailbox.Messages = append(mailbox.Messages, &memory.Message{
		Uid:   uid,
		Date:  time.Date(2016, 5, 11, 14, 31, 59, 0, time.UTC),
		Size:  uint32(len(body)),
		Flags: []string{imap.SeenFlag},
		Body:  body,
	})

	return uid
}
