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

package pump

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vs49688/calpump/calendar"
)

const DefaultUIDPrefix = "calpump"

func NewPump(cfg *Config) *Pump {
	uidPrefix := cfg.UIDPrefix
	if uidPrefix == "" {
		uidPrefix = DefaultUIDPrefix
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}

	return &Pump{
		remote:    cfg.Remote,
		uidPrefix: uidPrefix,
		now:       now,
		logger:    logger,
	}
}

// Deliver pushes every payload into the collection at path. The collection is
// ensured per payload as one message may carry both events and tasks. A failed
// payload doesn't stop the others from being attempted.
func (p *Pump) Deliver(ctx context.Context, path string, payloads [][]byte) Report {
	report := Report{}

	for _, data := range payloads {
		payload := calendar.Classify(data, p.uidPrefix, p.now())

		e := p.logger.WithFields(log.Fields{
			"collection": path,
			"uid":        payload.UID,
			"component":  payload.Kind,
		})
		if payload.Synthesized {
			e.Warn("pump_uid_synthesized")
		}

		d := Delivery{
			UID:         payload.UID,
			Kind:        payload.Kind,
			Synthesized: payload.Synthesized,
		}

		d.Collection = p.remote.Ensure(ctx, path, payload.Kind)
		if !d.Collection.OK() {
			e.WithField("outcome", d.Collection.String()).Error("pump_collection_unavailable")
			report.Failures = append(report.Failures, fmt.Sprintf("Cannot ensure collection %v", path))
			report.Deliveries = append(report.Deliveries, d)
			continue
		}

		d.Object = p.remote.Push(ctx, path, payload.UID, payload.Data)
		if d.Object.OK() {
			e.WithField("outcome", d.Object.String()).Info("pump_push_succeeded")
			report.Pushed++
		} else {
			e.WithField("outcome", d.Object.String()).Error("pump_push_failed")
			report.Failures = append(report.Failures, fmt.Sprintf("Failed to push UID %v", payload.UID))
		}

		report.Deliveries = append(report.Deliveries, d)
	}

	return report
}

func (r *Report) OK() bool {
	return len(r.Failures) == 0
}

func (r *Report) Error() string {
	return strings.Join(r.Failures, "; ")
}
