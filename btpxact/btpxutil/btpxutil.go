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

package btpxutil

import (
	"encoding/hex"
	"os"

	log "github.com/sirupsen/logrus"
)

var Debug bool

var logFormatter = log.TextFormatter{
	FullTimestamp:   true,
	TimestampFormat: "2006-01-02 15:04:05.999",
	ForceColors:     true,
}

// Dedicated logger for raw frame traffic; it stays quiet unless the tool runs
// at debug level.
var FrameLog = &log.Logger{
	Out:       os.Stderr,
	Formatter: &logFormatter,
	Hooks:     make(log.LevelHooks),
	Level:     log.InfoLevel,
}

func SetLogLevel(level log.Level) {
	log.SetLevel(level)
	log.SetFormatter(&logFormatter)
	FrameLog.SetLevel(level)
}

func Assert(cond bool) {
	if Debug && !cond {
		panic("Failed assertion")
	}
}

func LogTx(data []byte) {
	FrameLog.Debugf("Tx btp\n%s", hex.Dump(data))
}

func LogRx(data []byte) {
	FrameLog.Debugf("Rx btp\n%s", hex.Dump(data))
}
