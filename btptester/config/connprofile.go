/**
 * Licensed to the Apache Software Foundation (ASF) under one
 * or more contributor license agreements.  See the NOTICE file
 * distributed with this work for additional information
 * regarding copyright ownership.  The ASF licenses this file
 * to you under the Apache License, Version 2.0 (the
 * "License"); you may not use this file except in compliance
 * with the License.  You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"

	"github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"

	"mynewt.apache.org/newt/util"

	"mynewt.apache.org/btptester/btptester/btputil"
)

type ConnType int

const (
	CONN_TYPE_NONE ConnType = iota
	CONN_TYPE_SERIAL
	CONN_TYPE_UNIX
	CONN_TYPE_TCP
)

var connTypeNameMap = map[ConnType]string{
	CONN_TYPE_SERIAL: "serial",
	CONN_TYPE_UNIX:   "unix",
	CONN_TYPE_TCP:    "tcp",
	CONN_TYPE_NONE:   "???",
}

func ConnTypeToString(ct ConnType) string {
	return connTypeNameMap[ct]
}

func ConnTypeFromString(s string) (ConnType, error) {
	for k, v := range connTypeNameMap {
		if k != CONN_TYPE_NONE && s == v {
			return k, nil
		}
	}

	return CONN_TYPE_NONE, util.FmtNewtError("Invalid connection type: %s", s)
}

func (ct ConnType) MarshalJSON() ([]byte, error) {
	return json.Marshal(ConnTypeToString(ct))
}

func (ct *ConnType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	var err error
	*ct, err = ConnTypeFromString(s)
	if err != nil {
		*ct = CONN_TYPE_NONE
	}
	return nil
}

// A named transport setting, e.g., "pts" -> unix:/tmp/bt-stack-tester.
type ConnProfile struct {
	Name       string   `json:"name"`
	Type       ConnType `json:"type"`
	ConnString string   `json:"connstring"`
}

func NewConnProfile() *ConnProfile {
	return &ConnProfile{}
}

func (p *ConnProfile) String() string {
	return fmt.Sprintf("name=%s type=%s connstring=%s",
		p.Name, ConnTypeToString(p.Type), p.ConnString)
}

type ConnProfileMgr struct {
	filename string
	profiles map[string]*ConnProfile
}

func connProfileCfgFilename() (string, error) {
	dir, err := homedir.Dir()
	if err != nil {
		return "", util.NewNewtError(err.Error())
	}

	return filepath.Join(dir, btputil.ToolInfo.CfgFilename), nil
}

// Creates a manager backed by the profile file in the user's home
// directory.
func NewConnProfileMgr() (*ConnProfileMgr, error) {
	filename, err := connProfileCfgFilename()
	if err != nil {
		return nil, err
	}

	return NewConnProfileMgrAt(filename)
}

func NewConnProfileMgrAt(filename string) (*ConnProfileMgr, error) {
	cpm := &ConnProfileMgr{
		filename: filename,
		profiles: map[string]*ConnProfile{},
	}

	if err := cpm.load(); err != nil {
		return nil, err
	}

	return cpm, nil
}

func (cpm *ConnProfileMgr) load() error {
	log.Debugf("Reading connection profiles from %s", cpm.filename)

	blob, err := ioutil.ReadFile(cpm.filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return util.ChildNewtError(err)
	}

	var profiles []*ConnProfile
	if err := json.Unmarshal(blob, &profiles); err != nil {
		return util.FmtNewtError("error reading connection profile "+
			"config (%s): %s", cpm.filename, err.Error())
	}

	for _, p := range profiles {
		cpm.profiles[p.Name] = p
	}

	return nil
}

func (cpm *ConnProfileMgr) save() error {
	b, err := json.MarshalIndent(cpm.GetConnProfileList(), "", "    ")
	if err != nil {
		return util.NewNewtError(err.Error())
	}

	if err := ioutil.WriteFile(cpm.filename, b, 0644); err != nil {
		return util.ChildNewtError(err)
	}

	return nil
}

// Returns all profiles sorted by name.
func (cpm *ConnProfileMgr) GetConnProfileList() []*ConnProfile {
	cps := make([]*ConnProfile, 0, len(cpm.profiles))
	for _, p := range cpm.profiles {
		cps = append(cps, p)
	}

	sort.Slice(cps, func(i, j int) bool { return cps[i].Name < cps[j].Name })
	return cps
}

func (cpm *ConnProfileMgr) GetConnProfile(name string) (*ConnProfile, error) {
	p := cpm.profiles[name]
	if p == nil {
		return nil, util.FmtNewtError("connection profile \"%s\" doesn't "+
			"exist", name)
	}

	return p, nil
}

func (cpm *ConnProfileMgr) AddConnProfile(cp *ConnProfile) error {
	if cp.Name == "" {
		return util.NewNewtError("connection profile requires a name")
	}

	cpm.profiles[cp.Name] = cp
	return cpm.save()
}

func (cpm *ConnProfileMgr) DeleteConnProfile(name string) error {
	if cpm.profiles[name] == nil {
		return util.FmtNewtError("connection profile \"%s\" doesn't exist",
			name)
	}

	delete(cpm.profiles, name)
	return cpm.save()
}

var globalConnProfileMgr *ConnProfileMgr

func GlobalConnProfileMgr() *ConnProfileMgr {
	if globalConnProfileMgr == nil {
		panic("connection profile manager not initialized")
	}
	return globalConnProfileMgr
}

func InitGlobalConnProfileMgr() error {
	if globalConnProfileMgr != nil {
		return util.NewNewtError("connection profile manager initialized twice")
	}

	var err error
	globalConnProfileMgr, err = NewConnProfileMgr()
	return err
}
