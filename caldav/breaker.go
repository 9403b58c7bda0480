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

package caldav

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/emersion/go-webdav"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// breakerClient stops talking to the server after repeated transport errors or
// 5xx responses. Other statuses are answers, not failures, and never trip it.
type breakerClient struct {
	cb   *gobreaker.CircuitBreaker
	next webdav.HTTPClient
}

func newBreakerClient(next webdav.HTTPClient, threshold uint32, timeout time.Duration, logger *log.Entry) *breakerClient {
	return &breakerClient{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "caldav",
			MaxRequests: 1,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.WithFields(log.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("caldav_breaker_state_changed")
			},
		}),
	}
}

func (b *breakerClient) Do(req *http.Request) (*http.Response, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		resp, err := b.next.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= 500 {
			return resp, errServerStatus
		}

		return resp, nil
	})

	if err != nil && !errors.Is(err, errServerStatus) {
		return nil, err
	}

	return res.(*http.Response), nil
}
