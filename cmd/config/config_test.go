package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vs49688/calpump/caldav"
	"github.com/vs49688/calpump/router"
)

func TestLoadEnv(t *testing.T) {
	t.Run("file_then_environment", func(t *testing.T) {
		t.Setenv("INGEST_TOKEN", "from-environment")
		t.Setenv("CALPUMP_TEST_ONLY_IN_ENV", "  env ")

		env, err := LoadEnv("testdata/serve.env")
		if !assert.NoError(t, err) {
			t.FailNow()
		}

		assert.Equal(t, "s3cret", env.Get("INGEST_TOKEN"))
		assert.Equal(t, "hunter2", env.Get("RADICALE_PASS"))
		assert.Equal(t, "env", env.Get("CALPUMP_TEST_ONLY_IN_ENV"))
		assert.Equal(t, "", env.Get("CALPUMP_TEST_NOWHERE"))
	})

	t.Run("environment_only", func(t *testing.T) {
		t.Setenv("INGEST_TOKEN", "from-environment")

		env, err := LoadEnv("")
		if !assert.NoError(t, err) {
			t.FailNow()
		}

		assert.Equal(t, "from-environment", env.Get("INGEST_TOKEN"))
		assert.Equal(t, "relative.log", env.Path("relative.log"))
	})

	t.Run("missing_file", func(t *testing.T) {
		_, err := LoadEnv("testdata/nope.env")
		assert.Error(t, err)
	})

	t.Run("paths", func(t *testing.T) {
		env, err := LoadEnv("testdata/serve.env")
		if !assert.NoError(t, err) {
			t.FailNow()
		}

		assert.Equal(t, filepath.Join("testdata", "state", "ics-sync.log"), env.Path("state/ics-sync.log"))
		assert.Equal(t, "/var/lib/calpump/ics-sync.log", env.Path("/var/lib/calpump/ics-sync.log"))
		assert.Equal(t, "", env.Path(""))
	})

	t.Run("missing_keys", func(t *testing.T) {
		t.Setenv("CALPUMP_TEST_A", "")

		env, err := LoadEnv("testdata/incomplete.env")
		if !assert.NoError(t, err) {
			t.FailNow()
		}

		assert.Equal(t, "s3cret", env.Require("INGEST_TOKEN"))
		env.Require("CALPUMP_TEST_A")
		env.Require("RADICALE_USER")

		var mke *MissingKeysError
		err = env.Err()
		if assert.True(t, errors.As(err, &mke)) {
			assert.Equal(t, []string{"CALPUMP_TEST_A", "RADICALE_USER"}, mke.Keys)
		}
		assert.EqualError(t, err, "missing required configuration keys: CALPUMP_TEST_A, RADICALE_USER")
	})
}

func TestCliConfig_BuildServeConfig(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ConfigFile = "testdata/serve.env"
		cfg.Timeout = 10 * time.Second

		serveConfig, err := cfg.BuildServeConfig()
		if !assert.NoError(t, err) {
			t.FailNow()
		}

		assert.Equal(t, ":8080", serveConfig.Addr)
		assert.Equal(t, "s3cret", serveConfig.Token)
		assert.Equal(t, caldav.Config{
			BaseURL:          "http://radicale:5232",
			Username:         "nate",
			Password:         "hunter2",
			Timeout:          10 * time.Second,
			BreakerThreshold: 5,
			BreakerTimeout:   caldav.DefaultBreakerTimeout,
		}, serveConfig.CalDAV)
		assert.Equal(t, []router.Route{
			{Address: "pickleball@natecalvert.org", Path: "/nate/bounce_calendar/"},
			{Address: "tasks@natecalvert.org", Path: "/nate/tasks/"},
		}, serveConfig.Routes.Routes())
	})

	t.Run("missing_keys", func(t *testing.T) {
		for _, k := range []string{"RADICALE_INTERNAL_URL", "RADICALE_USER", "RADICALE_PASS", "CALENDAR_MAP"} {
			t.Setenv(k, "")
		}

		cfg := DefaultConfig()
		cfg.ConfigFile = "testdata/incomplete.env"

		_, err := cfg.BuildServeConfig()

		var mke *MissingKeysError
		if assert.True(t, errors.As(err, &mke)) {
			assert.Equal(t, []string{"RADICALE_INTERNAL_URL", "RADICALE_USER", "RADICALE_PASS", "CALENDAR_MAP"}, mke.Keys)
		}
	})

	t.Run("bad_routes", func(t *testing.T) {
		t.Setenv("INGEST_TOKEN", "s3cret")
		t.Setenv("RADICALE_INTERNAL_URL", "http://radicale:5232")
		t.Setenv("RADICALE_USER", "nate")
		t.Setenv("RADICALE_PASS", "hunter2")
		t.Setenv("CALENDAR_MAP", "garbage,,nope")

		cfg := DefaultConfig()
		cfg.ConfigFile = ""

		_, err := cfg.BuildServeConfig()
		assert.ErrorIs(t, err, router.ErrNoRoutes)
	})

	t.Run("default_and_bad_port", func(t *testing.T) {
		t.Setenv("INGEST_TOKEN", "s3cret")
		t.Setenv("RADICALE_INTERNAL_URL", "http://radicale:5232")
		t.Setenv("RADICALE_USER", "nate")
		t.Setenv("RADICALE_PASS", "hunter2")
		t.Setenv("CALENDAR_MAP", "a@b.c:/a/")
		t.Setenv("INGEST_PORT", "")

		cfg := DefaultConfig()
		cfg.ConfigFile = ""

		serveConfig, err := cfg.BuildServeConfig()
		if !assert.NoError(t, err) {
			t.FailNow()
		}
		assert.Equal(t, ":8000", serveConfig.Addr)

		t.Setenv("INGEST_PORT", "http")
		_, err = cfg.BuildServeConfig()
		assert.ErrorIs(t, err, errInvalidPort)
	})
}

func TestCliConfig_BuildPollConfig(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		t.Setenv("CALENDAR_MAP", "")

		cfg := DefaultConfig()
		cfg.ConfigFile = "testdata/poll.env"
		cfg.IMAPDebug = true

		pollConfig, err := cfg.BuildPollConfig()
		if !assert.NoError(t, err) {
			t.FailNow()
		}

		assert.Equal(t, "imap.hostname.com:1234", pollConfig.Connection.HostPort)
		assert.Equal(t, "INBOX", pollConfig.Connection.Mailbox)
		assert.True(t, pollConfig.Connection.TLS)
		assert.True(t, pollConfig.Connection.Debug)
		assert.Equal(t, "https://cal.natecalvert.org", pollConfig.CalDAV.BaseURL)
		assert.Equal(t, "/nate/bounce_calendar/", pollConfig.DefaultCollection)
		assert.Nil(t, pollConfig.Routes)
		assert.Equal(t, filepath.Join("testdata", "state", "ics-sync.log"), pollConfig.LogPath)
	})

	t.Run("routes_only", func(t *testing.T) {
		t.Setenv("IMAP_URL", "imap://localhost/INBOX")
		t.Setenv("IMAP_USERNAME", "username")
		t.Setenv("IMAP_PASSWORD", "password")
		t.Setenv("RADICALE_URL", "http://radicale:5232")
		t.Setenv("RADICALE_USER", "nate")
		t.Setenv("RADICALE_PASS", "hunter2")
		t.Setenv("ICS_SYNC_LOG", "/var/lib/calpump/ics-sync.log")
		t.Setenv("CALENDAR_MAP", "pickleball@natecalvert.org:/nate/bounce_calendar/")
		t.Setenv("POLL_COLLECTION", "")

		cfg := DefaultConfig()
		cfg.ConfigFile = ""

		pollConfig, err := cfg.BuildPollConfig()
		if !assert.NoError(t, err) {
			t.FailNow()
		}

		assert.Equal(t, 1, pollConfig.Routes.Len())
		assert.Equal(t, "", pollConfig.DefaultCollection)
		assert.Equal(t, "/var/lib/calpump/ics-sync.log", pollConfig.LogPath)

		t.Setenv("CALENDAR_MAP", "")
		_, err = cfg.BuildPollConfig()
		assert.ErrorIs(t, err, errNoCollection)
	})

	t.Run("missing_keys", func(t *testing.T) {
		for _, k := range []string{"IMAP_URL", "IMAP_USERNAME", "RADICALE_URL", "RADICALE_USER", "RADICALE_PASS", "ICS_SYNC_LOG"} {
			t.Setenv(k, "")
		}

		cfg := DefaultConfig()
		cfg.ConfigFile = ""

		_, err := cfg.BuildPollConfig()

		var mke *MissingKeysError
		if assert.True(t, errors.As(err, &mke)) {
			assert.Equal(t, []string{"IMAP_URL", "IMAP_USERNAME", "RADICALE_URL", "RADICALE_USER", "RADICALE_PASS", "ICS_SYNC_LOG"}, mke.Keys)
		}
	})
}
