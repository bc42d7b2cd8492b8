// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package lcmtypes declares the robot command and status messages exchanged
// on the bus, with typed Go views over them.
package lcmtypes

import (
	"strings"

	"github.com/luxfi/lcm"
)

// Type names.
const (
	IiwaCommandType   = "lcmt_iiwa_command"
	ForceTorqueType   = "lcmt_force_torque"
	FingerStatusType  = "lcmt_planar_gripper_finger_status"
	GripperStatusType = "lcmt_planar_gripper_status"
)

// Schemas lists every declared message. The command type has no nested
// fields, so its seed alone makes it fingerprint like the generated C++
// bindings. The gripper types nest layouts declared only here, whose derived
// hashes fold into the gripper status fingerprint, so those fingerprints are
// local to this package.
var Schemas = []lcm.Schema{
	{
		Name: IiwaCommandType,
		Seed: 0x6ee3e3b9c640a99a,
		Fields: []lcm.Field{
			lcm.Scalar("utime", lcm.KindInt64),
			lcm.Scalar("num_joints", lcm.KindInt32),
			lcm.Array("joint_position", lcm.KindFloat64, "num_joints"),
			lcm.Scalar("num_torques", lcm.KindInt32),
			lcm.Array("joint_torque", lcm.KindFloat64, "num_torques"),
		},
	},
	{
		Name: ForceTorqueType,
		Fields: []lcm.Field{
			lcm.Scalar("utime", lcm.KindInt64),
			lcm.Scalar("fx", lcm.KindFloat64),
			lcm.Scalar("fy", lcm.KindFloat64),
			lcm.Scalar("fz", lcm.KindFloat64),
			lcm.Scalar("tx", lcm.KindFloat64),
			lcm.Scalar("ty", lcm.KindFloat64),
			lcm.Scalar("tz", lcm.KindFloat64),
		},
	},
	{
		Name: FingerStatusType,
		Fields: []lcm.Field{
			lcm.Scalar("utime", lcm.KindInt64),
			lcm.Scalar("num_joints", lcm.KindInt32),
			lcm.Array("joint_position", lcm.KindFloat64, "num_joints"),
			lcm.Array("joint_velocity", lcm.KindFloat64, "num_joints"),
			lcm.Nested("fingertip_force", ForceTorqueType),
		},
	},
	{
		Name: GripperStatusType,
		Seed: 0xec829b900fe84fe3,
		Fields: []lcm.Field{
			lcm.Scalar("utime", lcm.KindInt64),
			lcm.Scalar("num_fingers", lcm.KindInt8),
			lcm.NestedArray("finger_status", FingerStatusType, "num_fingers"),
		},
	},
}

// Registry links Schemas.
var Registry = lcm.MustRegistry(Schemas)

var (
	iiwaCommand   = Registry.MustType(IiwaCommandType)
	gripperStatus = Registry.MustType(GripperStatusType)
)

// Channel returns the conventional channel for a type: its name without the
// "lcmt_" prefix, upper-cased. Channel("lcmt_iiwa_command") is "IIWA_COMMAND".
func Channel(typeName string) string {
	return strings.ToUpper(strings.TrimPrefix(typeName, "lcmt_"))
}
