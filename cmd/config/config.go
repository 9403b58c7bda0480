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

package config

import (
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/vs49688/calpump/caldav"
	"github.com/vs49688/calpump/ingest"
	"github.com/vs49688/calpump/router"
)

const DefaultIngestPort = "8000"

func DefaultConfig() CliConfig {
	return CliConfig{
		ConfigFile:       "config.env",
		LogLevel:         "info",
		LogFormat:        "text",
		Timeout:          caldav.DefaultTimeout,
		BreakerThreshold: 5,
		BreakerTimeout:   caldav.DefaultBreakerTimeout,
		MaxBodySize:      ingest.DefaultMaxBodySize,
		DisableDeletions: false,
		IMAPDebug:        false,
	}
}

// Parameters are the flags shared by every command.
func (cfg *CliConfig) Parameters() []cli.Flag {
	def := DefaultConfig()

	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "path to the KEY=value configuration file. empty to use the environment only",
			EnvVars:     []string{"CALPUMP_CONFIG"},
			Destination: &cfg.ConfigFile,
			Value:       def.ConfigFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "logging level",
			EnvVars:     []string{"CALPUMP_LOG_LEVEL"},
			Destination: &cfg.LogLevel,
			Value:       def.LogLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "logging format (text/json)",
			EnvVars:     []string{"CALPUMP_LOG_FORMAT"},
			Destination: &cfg.LogFormat,
			Value:       def.LogFormat,
		},
		&cli.DurationFlag{
			Name:        "timeout",
			Usage:       "timeout for each caldav request",
			EnvVars:     []string{"CALPUMP_TIMEOUT"},
			Destination: &cfg.Timeout,
			Value:       def.Timeout,
		},
		&cli.UintFlag{
			Name:        "breaker-threshold",
			Usage:       "consecutive caldav failures before failing fast. 0 to disable",
			EnvVars:     []string{"CALPUMP_BREAKER_THRESHOLD"},
			Destination: &cfg.BreakerThreshold,
			Value:       def.BreakerThreshold,
		},
		&cli.DurationFlag{
			Name:        "breaker-timeout",
			Usage:       "how long to fail fast before retrying caldav",
			EnvVars:     []string{"CALPUMP_BREAKER_TIMEOUT"},
			Destination: &cfg.BreakerTimeout,
			Value:       def.BreakerTimeout,
		},
	}
}

func (cfg *CliConfig) ServeParameters() []cli.Flag {
	def := DefaultConfig()

	return append(cfg.Parameters(), &cli.Int64Flag{
		Name:        "max-body-size",
		Usage:       "largest accepted message, in bytes",
		EnvVars:     []string{"CALPUMP_MAX_BODY_SIZE"},
		Destination: &cfg.MaxBodySize,
		Value:       def.MaxBodySize,
	})
}

func (cfg *CliConfig) PollParameters() []cli.Flag {
	def := DefaultConfig()

	return append(cfg.Parameters(),
		&cli.BoolFlag{
			Name:        "disable-deletions",
			Usage:       "disable deletions. for debugging only",
			EnvVars:     []string{"CALPUMP_DISABLE_DELETIONS"},
			Destination: &cfg.DisableDeletions,
			Value:       def.DisableDeletions,
			Hidden:      true,
		},
		&cli.BoolFlag{
			Name:        "imap-debug",
			Usage:       "display imap debug info",
			EnvVars:     []string{"CALPUMP_IMAP_DEBUG"},
			Destination: &cfg.IMAPDebug,
			Value:       def.IMAPDebug,
		},
	)
}

func (cfg *CliConfig) ConfigureLogging() {
	logLevel, err := log.ParseLevel(cfg.LogLevel)
	if err == nil {
		log.SetLevel(logLevel)
	}

	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
}

func (cfg *CliConfig) buildCalDAVConfig(env *Env, urlKey string) caldav.Config {
	return caldav.Config{
		BaseURL:          env.Require(urlKey),
		Username:         env.Require("RADICALE_USER"),
		Password:         env.Require("RADICALE_PASS"),
		Timeout:          cfg.Timeout,
		BreakerThreshold: uint32(cfg.BreakerThreshold),
		BreakerTimeout:   cfg.BreakerTimeout,
	}
}

func (cfg *CliConfig) BuildServeConfig() (*ServeConfig, error) {
	env, err := LoadEnv(cfg.ConfigFile)
	if err != nil {
		return nil, err
	}

	serveConfig := &ServeConfig{
		Token:  env.Require("INGEST_TOKEN"),
		CalDAV: cfg.buildCalDAVConfig(env, "RADICALE_INTERNAL_URL"),
	}

	routeSpec := env.Require("CALENDAR_MAP")

	if err := env.Err(); err != nil {
		return nil, err
	}

	serveConfig.Routes, err = router.Parse(routeSpec)
	if err != nil {
		return nil, err
	}

	port := env.Get("INGEST_PORT")
	if port == "" {
		port = DefaultIngestPort
	}

	if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
		return nil, fmt.Errorf("%w: %v", errInvalidPort, port)
	}

	serveConfig.Addr = ":" + port
	return serveConfig, nil
}

func (cfg *CliConfig) BuildPollConfig() (*PollConfig, error) {
	env, err := LoadEnv(cfg.ConfigFile)
	if err != nil {
		return nil, err
	}

	imapConfig := loadIMAPConfig(env)
	imapConfig.Debug = cfg.IMAPDebug

	pollConfig := &PollConfig{
		CalDAV:  cfg.buildCalDAVConfig(env, "RADICALE_URL"),
		LogPath: env.Path(env.Require("ICS_SYNC_LOG")),
	}

	if err := env.Err(); err != nil {
		return nil, err
	}

	pollConfig.Connection, err = imapConfig.Resolve()
	if err != nil {
		return nil, err
	}

	if spec := env.Get("CALENDAR_MAP"); spec != "" {
		pollConfig.Routes, err = router.Parse(spec)
		if err != nil {
			return nil, err
		}
	}

	if collection := env.Get("POLL_COLLECTION"); collection != "" {
		pollConfig.DefaultCollection = router.NormalizePath(collection)
	}

	if pollConfig.Routes == nil && pollConfig.DefaultCollection == "" {
		return nil, errNoCollection
	}

	return pollConfig, nil
}
