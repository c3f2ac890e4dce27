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

package btp

import (
	"fmt"
)

const BTP_HDR_SIZE = 5

// Default maximum payload accepted from the harness.
const BTP_MTU = 1024

// Controller index for commands that do not address a controller.
const INDEX_NONE = 0xff

const (
	BTP_SERVICE_ID_CORE  = 0
	BTP_SERVICE_ID_GAP   = 1
	BTP_SERVICE_ID_GATT  = 2
	BTP_SERVICE_ID_L2CAP = 3
	BTP_SERVICE_ID_MESH  = 4
	BTP_SERVICE_ID_MMDL  = 5
	BTP_SERVICE_ID_GATTC = 6
	BTP_SERVICE_ID_VCS   = 8
	BTP_SERVICE_ID_IAS   = 9
	BTP_SERVICE_ID_AICS  = 10
	BTP_SERVICE_ID_VOCS  = 11
	BTP_SERVICE_ID_PACS  = 12
	BTP_SERVICE_ID_ASCS  = 13
	BTP_SERVICE_ID_BAP   = 14
	BTP_SERVICE_ID_HAS   = 15
	BTP_SERVICE_ID_MICP  = 16
	BTP_SERVICE_ID_CSIS  = 17
	BTP_SERVICE_ID_MICS  = 18
	BTP_SERVICE_ID_CCP   = 19
	BTP_SERVICE_ID_VCP   = 20
	BTP_SERVICE_ID_MCP   = 22
	BTP_SERVICE_ID_GMCS  = 23
)

// Opcodes shared by every service.
const (
	BTP_OP_ERROR               = 0x00
	BTP_OP_READ_SUPPORTED_CMDS = 0x01
)

// Opcodes at or above this value are events.
const BTP_EV_MIN = 0x80

const (
	BTP_STATUS_SUCCESS     = 0x00
	BTP_STATUS_FAILED      = 0x01
	BTP_STATUS_UNKNOWN_CMD = 0x02
	BTP_STATUS_NOT_READY   = 0x03
)

var serviceIdNameMap = map[uint8]string{
	BTP_SERVICE_ID_CORE:  "core",
	BTP_SERVICE_ID_GAP:   "gap",
	BTP_SERVICE_ID_GATT:  "gatt",
	BTP_SERVICE_ID_L2CAP: "l2cap",
	BTP_SERVICE_ID_MESH:  "mesh",
	BTP_SERVICE_ID_MMDL:  "mmdl",
	BTP_SERVICE_ID_GATTC: "gatt_cl",
	BTP_SERVICE_ID_VCS:   "vcs",
	BTP_SERVICE_ID_IAS:   "ias",
	BTP_SERVICE_ID_AICS:  "aics",
	BTP_SERVICE_ID_VOCS:  "vocs",
	BTP_SERVICE_ID_PACS:  "pacs",
	BTP_SERVICE_ID_ASCS:  "ascs",
	BTP_SERVICE_ID_BAP:   "bap",
	BTP_SERVICE_ID_HAS:   "has",
	BTP_SERVICE_ID_MICP:  "micp",
	BTP_SERVICE_ID_CSIS:  "csis",
	BTP_SERVICE_ID_MICS:  "mics",
	BTP_SERVICE_ID_CCP:   "ccp",
	BTP_SERVICE_ID_VCP:   "vcp",
	BTP_SERVICE_ID_MCP:   "mcp",
	BTP_SERVICE_ID_GMCS:  "gmcs",
}

func ServiceIdToString(id uint8) string {
	s := serviceIdNameMap[id]
	if s == "" {
		return fmt.Sprintf("svc-%d", id)
	}

	return s
}

func ServiceIdFromString(s string) (uint8, error) {
	for id, name := range serviceIdNameMap {
		if s == name {
			return id, nil
		}
	}

	return 0, fmt.Errorf("Invalid BTP service name: %s", s)
}

func StatusString(status uint8) string {
	switch status {
	case BTP_STATUS_SUCCESS:
		return "success"
	case BTP_STATUS_FAILED:
		return "failed"
	case BTP_STATUS_UNKNOWN_CMD:
		return "unknown_cmd"
	case BTP_STATUS_NOT_READY:
		return "not_ready"
	default:
		return "???"
	}
}
