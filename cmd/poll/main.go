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
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/vs49688/calpump/caldav"
	"github.com/vs49688/calpump/cmd/config"
	"github.com/vs49688/calpump/deliverylog"
	"github.com/vs49688/calpump/imap/client"
	calpoll "github.com/vs49688/calpump/poll"
	"github.com/vs49688/calpump/pump"
)

func RegisterCommand(app *cli.App) *cli.App {
	cfg := &config.CliConfig{}
	app.Commands = append(app.Commands, &cli.Command{
		Name:   "poll",
		Usage:  "Deliver calendar attachments from an IMAP mailbox, once",
		Flags:  cfg.PollParameters(),
		Action: func(context *cli.Context) error { return poll(context, cfg) },
	})
	return app
}

func poll(_ *cli.Context, cfg *config.CliConfig) error {
	cfg.ConfigureLogging()

	pollConfig, err := cfg.BuildPollConfig()
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"config":             cfg.ConfigFile,
		"imap_host":          pollConfig.Connection.HostPort,
		"imap_mailbox":       pollConfig.Connection.Mailbox,
		"imap_tls":           pollConfig.Connection.TLS,
		"imap_debug":         pollConfig.Connection.Debug,
		"caldav_url":         pollConfig.CalDAV.BaseURL,
		"caldav_username":    pollConfig.CalDAV.Username,
		"default_collection": pollConfig.DefaultCollection,
		"num_routes":         pollConfig.Routes.Len(),
		"sync_log":           pollConfig.LogPath,
		"disable_deletions":  cfg.DisableDeletions,
		"timeout":            cfg.Timeout,
		"log_level":          cfg.LogLevel,
		"log_format":         cfg.LogFormat,
	}).Info("starting")

	remote, err := caldav.NewClient(&pollConfig.CalDAV)
	if err != nil {
		return err
	}

	syncLog, err := deliverylog.Open(pollConfig.LogPath)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{"sync_log": syncLog.Path(), "entries": syncLog.Len()}).Debug("sync_log_loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigchan := make(chan os.Signal, 10)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigchan)

	go func() {
		sigcount := 0
		for sig := range sigchan {
			sigcount += 1
			if sigcount > 1 {
				log.WithFields(log.Fields{"signal": sig}).Warn("received_interrupt_force_exit")
				os.Exit(1)
			}
			log.WithFields(log.Fields{"signal": sig}).Info("received_interrupt")
			cancel()
		}
	}()

	summary, err := calpoll.Run(ctx, &calpoll.Config{
		Connection:        pollConfig.Connection,
		Factory:           &client.Factory{},
		Pump:              pump.NewPump(&pump.Config{Remote: remote, UIDPrefix: "ics-sync"}),
		Routes:            pollConfig.Routes,
		DefaultCollection: pollConfig.DefaultCollection,
		Log:               syncLog,
		DisableDeletions:  cfg.DisableDeletions,
	})
	if err != nil {
		return err
	}

	if summary.Failed > 0 {
		log.WithField("failed", summary.Failed).Warn("poll_messages_left_for_retry")
	}

	return nil
}
