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

// Package router maps destination addresses to CalDAV collection paths.
package router

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNoRoutes = errors.New("routing table is empty or malformed")
)

// Table is read-only once built and safe for concurrent use.
type Table struct {
	routes map[string]string
}

type Route struct {
	Address string
	Path    string
}

// Parse builds a table from comma-separated "address:path" pairs, e.g.
// "pickleball@natecalvert.org:/nate/bounce_calendar/,tasks@natecalvert.org:/nate/tasks".
// Entries without a separator or address are skipped, an empty path is the
// server root, and later duplicates replace earlier ones.
func Parse(spec string) (*Table, error) {
	routes := map[string]string{}

	for _, entry := range strings.Split(spec, ",") {
		addr, path, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok {
			continue
		}

		addr = normalizeAddress(addr)
		path = NormalizePath(path)
		if addr == "" {
			continue
		}

		routes[addr] = path
	}

	if len(routes) == 0 {
		return nil, ErrNoRoutes
	}

	return &Table{routes: routes}, nil
}

func normalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// NormalizePath trims a collection path and gives it exactly one leading and
// one trailing slash.
func NormalizePath(path string) string {
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		return "/"
	}

	return "/" + path + "/"
}

// Resolve looks up the collection path for an address. Matching is exact and
// case-insensitive.
func (t *Table) Resolve(addr string) (string, bool) {
	if t == nil {
		return "", false
	}

	path, ok := t.routes[normalizeAddress(addr)]
	return path, ok
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.routes)
}

// Routes returns every route, sorted by address.
func (t *Table) Routes() []Route {
	if t == nil {
		return nil
	}

	routes := make([]Route, 0, len(t.routes))
	for addr, path := range t.routes {
		routes = append(routes, Route{Address: addr, Path: path})
	}

	sort.Slice(routes, func(i, j int) bool { return routes[i].Address < routes[j].Address })
	return routes
}
