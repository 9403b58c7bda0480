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
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/emersion/go-sasl"
	"golang.org/x/oauth2"

	"github.com/vs49688/calpump/imap"
)

func DefaultIMAPConfig() IMAPConfig {
	return IMAPConfig{
		AuthMethod:    "normal",
		TLSSkipVerify: false,
		Debug:         false,
	}
}

func loadIMAPConfig(env *Env) IMAPConfig {
	cfg := DefaultIMAPConfig()

	cfg.URL = env.Require("IMAP_URL")
	cfg.Username = env.Require("IMAP_USERNAME")
	cfg.Password = env.Get("IMAP_PASSWORD")
	cfg.PasswordFile = env.Path(env.Get("IMAP_PASSWORD_FILE"))
	cfg.TLSSkipVerify = env.Bool("IMAP_TLS_SKIP_VERIFY")

	if method := env.Get("IMAP_AUTH_METHOD"); method != "" {
		cfg.AuthMethod = method
	}

	return cfg
}

func extractUrl(u *url.URL) (string, string, bool, error) {
	var defaultPort string
	var useTLS bool
	switch strings.ToLower(u.Scheme) {
	case "imap":
		defaultPort = "143"
		useTLS = false
	case "imaps":
		defaultPort = "993"
		useTLS = true
	default:
		return "", "", false, errInvalidScheme
	}

	host := u.Hostname()
	port := u.Port()

	if port == "" {
		port = defaultPort
	}

	return net.JoinHostPort(host, port), strings.TrimPrefix(u.Path, "/"), useTLS, nil
}

func (cfg *IMAPConfig) validateUserPass() (string, string, error) {
	if cfg.Username == "" {
		return "", "", fmt.Errorf("IMAP_USERNAME is required when using %v auth", cfg.AuthMethod)
	}

	var password string
	username := cfg.Username

	if cfg.Password != "" {
		password = cfg.Password
	} else if cfg.PasswordFile != "" {
		pass, err := os.ReadFile(cfg.PasswordFile)
		if err != nil {
			return "", "", err
		}

		password = strings.TrimSpace(string(pass))
	} else {
		return "", "", fmt.Errorf("at least one of IMAP_PASSWORD or IMAP_PASSWORD_FILE is required")
	}

	return username, password, nil
}

func (cfg *IMAPConfig) Resolve() (imap.ConnectionConfig, error) {
	connConfig := imap.ConnectionConfig{}

	sourceURL, err := url.Parse(cfg.URL)
	if err != nil {
		return connConfig, err
	}

	hostPort, mailbox, wantTLS, err := extractUrl(sourceURL)
	if err != nil {
		return connConfig, err
	}

	user, pass, err := cfg.validateUserPass()
	if err != nil {
		return connConfig, err
	}

	switch strings.ToUpper(cfg.AuthMethod) {
	case "NORMAL", "LOGIN":
		connConfig.Auth = imap.NewNormalAuthenticator(user, pass)
	case sasl.Plain:
		connConfig.Auth = imap.NewSASLAuthenticator(sasl.NewPlainClient("", user, pass))
	case sasl.OAuthBearer:
		// The password is the access token.
		connConfig.Auth = imap.NewOAuthBearerAuthenticator(user, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: pass}))
	default:
		return connConfig, fmt.Errorf("unsupported auth method: %v", cfg.AuthMethod)
	}

	connConfig.HostPort = hostPort
	connConfig.Mailbox = mailbox
	connConfig.TLS = wantTLS
	connConfig.TLSConfig = nil
	if cfg.TLSSkipVerify {
		// #nosec G402
		connConfig.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}

	connConfig.Debug = cfg.Debug
	return connConfig, nil
}
