// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lcmtypes

import (
	"github.com/luxfi/lcm"
)

// IiwaCommand commands a single set of joint states for the arm. Positions
// are sent in position control mode and torques in torque control mode; the
// unused array is left empty.
type IiwaCommand struct {
	Utime         int64
	JointPosition []float64
	JointTorque   []float64
}

// IiwaCommandMessage returns the linked type of IiwaCommand.
func IiwaCommandMessage() *lcm.Type { return iiwaCommand }

// Value converts c to its generic form. Count fields are left to the encoder.
func (c *IiwaCommand) Value() lcm.Value {
	return lcm.Value{
		"utime":          c.Utime,
		"joint_position": c.JointPosition,
		"joint_torque":   c.JointTorque,
	}
}

// Encode encodes c with its fingerprint.
func (c *IiwaCommand) Encode() ([]byte, error) {
	return iiwaCommand.Encode(c.Value())
}

// DecodeIiwaCommand decodes an encoded lcmt_iiwa_command.
func DecodeIiwaCommand(data []byte) (*IiwaCommand, error) {
	v, err := iiwaCommand.Decode(data)
	if err != nil {
		return nil, err
	}
	c := &IiwaCommand{}
	if c.Utime, err = get[int64](v, "utime"); err != nil {
		return nil, err
	}
	if c.JointPosition, err = get[[]float64](v, "joint_position"); err != nil {
		return nil, err
	}
	if c.JointTorque, err = get[[]float64](v, "joint_torque"); err != nil {
		return nil, err
	}
	return c, nil
}
