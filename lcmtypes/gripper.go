// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lcmtypes

import (
	"github.com/pkg/errors"

	"github.com/luxfi/lcm"
)

// ForceTorque is a wrench measured at a fingertip.
type ForceTorque struct {
	Utime      int64
	Fx, Fy, Fz float64
	Tx, Ty, Tz float64
}

// FingerStatus is the state of one planar-gripper finger. Angles are in
// radians and velocities in radians/second.
type FingerStatus struct {
	Utime          int64
	JointPosition  []float64
	JointVelocity  []float64
	FingertipForce ForceTorque
}

// GripperStatus is the current status of a planar gripper with one entry per
// finger.
type GripperStatus struct {
	Utime   int64
	Fingers []FingerStatus
}

// GripperStatusMessage returns the linked type of GripperStatus.
func GripperStatusMessage() *lcm.Type { return gripperStatus }

func (f *ForceTorque) value() lcm.Value {
	return lcm.Value{
		"utime": f.Utime,
		"fx":    f.Fx,
		"fy":    f.Fy,
		"fz":    f.Fz,
		"tx":    f.Tx,
		"ty":    f.Ty,
		"tz":    f.Tz,
	}
}

func (f *ForceTorque) fromValue(v lcm.Value) error {
	var err error
	fields := []struct {
		name string
		dst  *float64
	}{
		{"fx", &f.Fx}, {"fy", &f.Fy}, {"fz", &f.Fz},
		{"tx", &f.Tx}, {"ty", &f.Ty}, {"tz", &f.Tz},
	}
	if f.Utime, err = get[int64](v, "utime"); err != nil {
		return err
	}
	for _, fl := range fields {
		if *fl.dst, err = get[float64](v, fl.name); err != nil {
			return err
		}
	}
	return nil
}

func (f *FingerStatus) value() lcm.Value {
	return lcm.Value{
		"utime":           f.Utime,
		"joint_position":  f.JointPosition,
		"joint_velocity":  f.JointVelocity,
		"fingertip_force": f.FingertipForce.value(),
	}
}

func (f *FingerStatus) fromValue(v lcm.Value) error {
	var err error
	if f.Utime, err = get[int64](v, "utime"); err != nil {
		return err
	}
	if f.JointPosition, err = get[[]float64](v, "joint_position"); err != nil {
		return err
	}
	if f.JointVelocity, err = get[[]float64](v, "joint_velocity"); err != nil {
		return err
	}
	ft, err := get[lcm.Value](v, "fingertip_force")
	if err != nil {
		return err
	}
	return f.FingertipForce.fromValue(ft)
}

// Value converts s to its generic form.
func (s *GripperStatus) Value() lcm.Value {
	fingers := make([]lcm.Value, len(s.Fingers))
	for i := range s.Fingers {
		fingers[i] = s.Fingers[i].value()
	}
	return lcm.Value{
		"utime":         s.Utime,
		"finger_status": fingers,
	}
}

// Encode encodes s with its fingerprint.
func (s *GripperStatus) Encode() ([]byte, error) {
	return gripperStatus.Encode(s.Value())
}

// DecodeGripperStatus decodes an encoded lcmt_planar_gripper_status.
func DecodeGripperStatus(data []byte) (*GripperStatus, error) {
	v, err := gripperStatus.Decode(data)
	if err != nil {
		return nil, err
	}
	s := &GripperStatus{}
	if s.Utime, err = get[int64](v, "utime"); err != nil {
		return nil, err
	}
	fingers, err := get[[]lcm.Value](v, "finger_status")
	if err != nil {
		return nil, err
	}
	s.Fingers = make([]FingerStatus, len(fingers))
	for i, fv := range fingers {
		if err := s.Fingers[i].fromValue(fv); err != nil {
			return nil, errors.WithMessagef(err, "finger %d", i)
		}
	}
	return s, nil
}

// get reads a decoded field of a known Go type.
func get[T any](v lcm.Value, name string) (T, error) {
	x, ok := v[name].(T)
	if !ok {
		var zero T
		return zero, errors.WithMessagef(lcm.ErrInvalidValue, "field %q holds %T, want %T", name, v[name], zero)
	}
	return x, nil
}
