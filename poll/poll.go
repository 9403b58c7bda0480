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
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/emersion/go-imap"
	log "github.com/sirupsen/logrus"

	"github.com/vs49688/calpump/calendar"
	"github.com/vs49688/calpump/deliverylog"
	imap2 "github.com/vs49688/calpump/imap"
)

var bodySection = &imap.BodySectionName{Peek: true}

// Run makes a single pass over the mailbox. A message is deleted and recorded
// in the log only if every calendar attachment in it was delivered; otherwise
// it is left alone for the next run. Protocol and log errors abort the pass.
func Run(ctx context.Context, cfg *Config) (Summary, error) {
	summary := Summary{}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}

	mailbox := cfg.Connection.Mailbox
	if mailbox == "" {
		mailbox = DefaultMailbox
	}

	logger = logger.WithFields(log.Fields{"host": cfg.Connection.HostPort, "mailbox": mailbox})

	c, err := cfg.Factory.NewClient(&cfg.Connection)
	if err != nil {
		return summary, fmt.Errorf("connecting to %v: %w", cfg.Connection.HostPort, err)
	}
	defer func() { _ = c.Logout() }()

	status, err := c.Select(mailbox, false)
	if err != nil {
		return summary, fmt.Errorf("selecting %v: %w", mailbox, err)
	}

	logger.WithFields(log.Fields{
		"num_messages": status.Messages,
		"uid_validity": status.UidValidity,
	}).Debug("poll_mailbox_selected")

	uids, err := c.UidSearch(imap.NewSearchCriteria())
	if err != nil {
		return summary, fmt.Errorf("searching %v: %w", mailbox, err)
	}

	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	logger.WithField("uids", uids).Trace("poll_search_succeeded")

	for _, uid := range uids {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		msg, err := fetch(c, uid)
		if err != nil {
			return summary, fmt.Errorf("fetching uid %v: %w", uid, err)
		}

		if msg == nil {
			logger.WithField("uid", uid).Warn("poll_message_vanished")
			continue
		}

		summary.Messages++
		if err := process(ctx, cfg, c, logger, msg, &summary); err != nil {
			return summary, err
		}
	}

	logger.WithFields(log.Fields{
		"messages":       summary.Messages,
		"delivered":      summary.Delivered,
		"duplicates":     summary.Duplicates,
		"no_attachments": summary.NoAttachments,
		"failed":         summary.Failed,
		"pushed":         summary.Pushed,
	}).Info("poll_finished")

	return summary, nil
}

func fetch(c imap2.Client, uid uint32) (*fetched, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	ch := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	go func() {
		done <- c.UidFetch(seqset, []imap.FetchItem{imap.FetchUid, imap.FetchEnvelope, bodySection.FetchItem()}, ch)
	}()

	var msg *imap.Message
	for m := range ch {
		// Servers may send unsolicited FETCH responses for other messages.
		if m != nil && m.Uid == uid {
			msg = m
		}
	}

	if err := <-done; err != nil {
		return nil, err
	}

	if msg == nil {
		return nil, nil
	}

	f := &fetched{UID: uid}

	if body := msg.GetBody(bodySection); body != nil {
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, err
		}
		f.Raw = raw
	}

	if env := msg.Envelope; env != nil {
		f.Identifier = strings.TrimSpace(env.MessageId)
		f.Recipients = append(addresses(env.To), addresses(env.Cc)...)
	}

	if deliverylog.Check(f.Identifier) != nil {
		sum := sha256.Sum256(f.Raw)
		f.Identifier = "sha256:" + hex.EncodeToString(sum[:])
	}

	return f, nil
}

func addresses(addrs []*imap.Address) []string {
	var out []string
	for _, a := range addrs {
		if a == nil || a.MailboxName == "" || a.HostName == "" {
			continue
		}
		out = append(out, a.MailboxName+"@"+a.HostName)
	}
	return out
}

func destination(cfg *Config, msg *fetched) (string, error) {
	for _, addr := range msg.Recipients {
		if path, ok := cfg.Routes.Resolve(addr); ok {
			return path, nil
		}
	}

	if cfg.DefaultCollection != "" {
		return cfg.DefaultCollection, nil
	}

	return "", errNoDestination
}

func process(ctx context.Context, cfg *Config, c imap2.Client, logger *log.Entry, msg *fetched, summary *Summary) error {
	e := logger.WithFields(log.Fields{"uid": msg.UID, "message_id": msg.Identifier})

	// Nothing is deleted unless the identifier can be recorded afterwards.
	if err := deliverylog.Check(msg.Identifier); err != nil {
		e.WithError(err).Warn("poll_message_unrecordable")
		summary.Failed++
		return nil
	}

	if cfg.Log.Seen(msg.Identifier) {
		e.Debug("poll_message_already_delivered")
		summary.Duplicates++
		return nil
	}

	payloads, err := calendar.ExtractAttachments(bytes.NewReader(msg.Raw))
	if err != nil {
		e.WithError(err).Warn("poll_message_malformed")
		summary.Failed++
		return nil
	}

	if len(payloads) == 0 {
		e.Debug("poll_message_no_attachments")
		summary.NoAttachments++
		return nil
	}

	path, err := destination(cfg, msg)
	if err != nil {
		e.WithField("recipients", msg.Recipients).WithError(err).Warn("poll_message_unrouted")
		summary.Failed++
		return nil
	}

	e = e.WithField("collection", path)

	report := cfg.Pump.Deliver(ctx, path, payloads)
	summary.Pushed += report.Pushed
	if !report.OK() {
		e.WithField("failures", report.Failures).Error("poll_message_delivery_failed")
		summary.Failed++
		return nil
	}

	if !cfg.DisableDeletions {
		seqset := new(imap.SeqSet)
		seqset.AddNum(msg.UID)

		if err := c.UidStore(seqset, imap.FormatFlagsOp(imap.AddFlags, true), []interface{}{imap.DeletedFlag}, nil); err != nil {
			return fmt.Errorf("flagging uid %v: %w", msg.UID, err)
		}

		if err := c.Expunge(nil); err != nil {
			return fmt.Errorf("expunging uid %v: %w", msg.UID, err)
		}
	}

	if err := cfg.Log.Append(msg.Identifier); err != nil {
		return fmt.Errorf("recording %v: %w", msg.Identifier, err)
	}

	e.WithField("pushed", report.Pushed).Info("poll_message_delivered")
	summary.Delivered++
	return nil
}
