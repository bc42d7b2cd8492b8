// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lcm

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testSchemaYAML = `
types:
  - name: lcmt_iiwa_command
    seed: "0x6ee3e3b9c640a99a"
    fields:
      - {name: utime, type: int64_t}
      - {name: num_joints, type: int32_t}
      - {name: joint_position, type: "double[num_joints]"}
      - {name: num_torques, type: int32_t}
      - {name: joint_torque, type: "double[num_torques]"}
  - name: image
    fields:
      - {name: rows, type: int16_t}
      - {name: cols, type: int16}
      - {name: pixels, type: "byte[rows][cols]"}
      - {name: origin, type: point}
  - name: point
    fields:
      - {name: x, type: float}
      - {name: y, type: float32}
`

func TestLoadSchemas(t *testing.T) {
	require := require.New(t)

	schemas, err := LoadSchemas(strings.NewReader(testSchemaYAML))
	require.NoError(err)
	require.Len(schemas, 3)

	require.Equal(Schema{
		Name: "lcmt_iiwa_command",
		Seed: 0x6ee3e3b9c640a99a,
		Fields: []Field{
			Scalar("utime", KindInt64),
			Scalar("num_joints", KindInt32),
			Array("joint_position", KindFloat64, "num_joints"),
			Scalar("num_torques", KindInt32),
			Array("joint_torque", KindFloat64, "num_torques"),
		},
	}, schemas[0])
	require.Equal(Matrix("pixels", KindByte, "rows", "cols"), schemas[1].Fields[2])
	require.Equal(Nested("origin", "point"), schemas[1].Fields[3])
	require.Equal(Scalar("y", KindFloat32), schemas[2].Fields[1])

	reg, err := NewRegistry(schemas)
	require.NoError(err)
	require.Equal(uint64(0xddc7c7738c815334), reg.MustType("lcmt_iiwa_command").Fingerprint())
}

func TestLoadSchemasEmpty(t *testing.T) {
	schemas, err := LoadSchemas(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, schemas)
}

func TestLoadSchemasErrors(t *testing.T) {
	tests := map[string]string{
		"unknown key":          "types:\n  - name: a\n    color: red\n",
		"bad seed":             "types:\n  - name: a\n    seed: nope\n",
		"unterminated":         "types:\n  - name: a\n    fields:\n      - {name: x, type: \"double[n\"}\n",
		"empty dimension":      "types:\n  - name: a\n    fields:\n      - {name: x, type: \"double[]\"}\n",
		"junk after dimension": "types:\n  - name: a\n    fields:\n      - {name: x, type: \"double[n]x\"}\n",
		"empty type":           "types:\n  - name: a\n    fields:\n      - {name: x, type: \"\"}\n",
		"not yaml":             "types: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadSchemas(strings.NewReader(doc))
			require.Error(t, err)
		})
	}
}

func TestLoadSchemaFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testSchemaYAML), 0o600))

	schemas, err := LoadSchemaFile(path)
	require.NoError(t, err)
	require.Len(t, schemas, 3)

	_, err = LoadSchemaFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
