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
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv reads the KEY=value file at path. Keys not in the file are looked up
// in the process environment. An empty path uses the environment only.
func LoadEnv(path string) (*Env, error) {
	env := &Env{
		path:   path,
		values: map[string]string{},
		lookup: os.LookupEnv,
	}

	if path == "" {
		return env, nil
	}

	values, err := godotenv.Read(path)
	if err != nil {
		return nil, err
	}

	env.values = values
	return env, nil
}

func (e *Env) Get(key string) string {
	if v, ok := e.values[key]; ok {
		return strings.TrimSpace(v)
	}

	if v, ok := e.lookup(key); ok {
		return strings.TrimSpace(v)
	}

	return ""
}

// Require returns the value of key, remembering it as missing if empty.
func (e *Env) Require(key string) string {
	v := e.Get(key)
	if v == "" {
		e.missing = append(e.missing, key)
	}
	return v
}

func (e *Env) Bool(key string) bool {
	b, err := strconv.ParseBool(e.Get(key))
	return err == nil && b
}

// Err returns a *MissingKeysError naming every key Require couldn't find.
func (e *Env) Err() error {
	if len(e.missing) == 0 {
		return nil
	}

	return &MissingKeysError{Keys: append([]string(nil), e.missing...)}
}

// Path resolves p against the directory of the config file.
func (e *Env) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || e.path == "" {
		return p
	}

	return filepath.Join(filepath.Dir(e.path), p)
}
