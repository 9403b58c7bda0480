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

package serve

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/vs49688/calpump/caldav"
	"github.com/vs49688/calpump/cmd/config"
	"github.com/vs49688/calpump/ingest"
	"github.com/vs49688/calpump/pump"
)

func RegisterCommand(app *cli.App) *cli.App {
	cfg := &config.CliConfig{}
	app.Commands = append(app.Commands, &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP ingest endpoint",
		Flags:  cfg.ServeParameters(),
		Action: func(context *cli.Context) error { return serve(context, cfg) },
	})
	return app
}

func serve(_ *cli.Context, cfg *config.CliConfig) error {
	cfg.ConfigureLogging()

	serveConfig, err := cfg.BuildServeConfig()
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"config":            cfg.ConfigFile,
		"addr":              serveConfig.Addr,
		"caldav_url":        serveConfig.CalDAV.BaseURL,
		"caldav_username":   serveConfig.CalDAV.Username,
		"timeout":           cfg.Timeout,
		"breaker_threshold": cfg.BreakerThreshold,
		"breaker_timeout":   cfg.BreakerTimeout,
		"max_body_size":     cfg.MaxBodySize,
		"log_level":         cfg.LogLevel,
		"log_format":        cfg.LogFormat,
		"num_routes":        serveConfig.Routes.Len(),
	}).Info("starting")

	for _, r := range serveConfig.Routes.Routes() {
		log.WithFields(log.Fields{"address": r.Address, "collection": r.Path}).Info("route")
	}

	remote, err := caldav.NewClient(&serveConfig.CalDAV)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)

	h, err := ingest.NewHandler(&ingest.Config{
		Token:       serveConfig.Token,
		Routes:      serveConfig.Routes,
		Pump:        pump.NewPump(&pump.Config{Remote: remote, UIDPrefix: "ingest"}),
		MaxBodySize: cfg.MaxBodySize,
	})
	if err != nil {
		return err
	}

	srv := ingest.NewServer(&ingest.ServerConfig{
		Addr:    serveConfig.Addr,
		Handler: h,
	})

	doneChan := make(chan error, 1)
	go func() { doneChan <- srv.ListenAndServe() }()

	sigchan := make(chan os.Signal, 10)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)

	sigcount := 0
	for {
		select {
		case sig := <-sigchan:
			log.WithFields(log.Fields{"signal": sig, "count": sigcount}).Trace("caught_signal")

			sigcount += 1
			if sigcount > 1 {
				log.WithFields(log.Fields{"signal": sig}).Warn("received_interrupt_force_exit")
				os.Exit(1)
			}
			log.WithFields(log.Fields{"signal": sig}).Info("received_interrupt")

			go func() {
				if err := srv.Shutdown(); err != nil {
					log.WithError(err).Warn("ingest_shutdown_failed")
				}
			}()
		case err := <-doneChan:
			log.Info("ingest_terminated")
			return err
		}
	}
}
