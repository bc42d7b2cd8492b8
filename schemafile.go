// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lcm

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// schemaFile is the YAML layout read by LoadSchemas:
//
//	types:
//	  - name: lcmt_iiwa_command
//	    seed: "0x6ee3e3b9c640a99a"
//	    fields:
//	      - {name: utime, type: int64_t}
//	      - {name: num_joints, type: int32_t}
//	      - {name: joint_position, type: "double[num_joints]"}
type schemaFile struct {
	Types []struct {
		Name   string `yaml:"name"`
		Seed   string `yaml:"seed"`
		Fields []struct {
			Name string `yaml:"name"`
			Type string `yaml:"type"`
		} `yaml:"fields"`
	} `yaml:"types"`
}

// LoadSchemas reads schema declarations from YAML. Field types use the
// schema-language primitive names; any other name refers to a message type,
// and each "[count]" suffix adds an array dimension.
func LoadSchemas(r io.Reader) ([]Schema, error) {
	var file schemaFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "parse schema file")
	}

	schemas := make([]Schema, 0, len(file.Types))
	for _, ty := range file.Types {
		s := Schema{Name: ty.Name}
		if ty.Seed != "" {
			seed, err := strconv.ParseUint(ty.Seed, 0, 64)
			if err != nil {
				return nil, errors.WithMessagef(ErrInvalidSchema, "%s: seed %q: %v", ty.Name, ty.Seed, err)
			}
			s.Seed = seed
		}
		for _, f := range ty.Fields {
			field, err := parseFieldType(f.Name, f.Type)
			if err != nil {
				return nil, errors.WithMessagef(err, "%s.%s", ty.Name, f.Name)
			}
			s.Fields = append(s.Fields, field)
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}

// LoadSchemaFile reads schema declarations from a YAML file.
func LoadSchemaFile(path string) ([]Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open schema file")
	}
	defer f.Close()
	return LoadSchemas(f)
}

// parseFieldType splits "double[rows][cols]" into its kind and dimensions.
func parseFieldType(name, decl string) (Field, error) {
	decl = strings.TrimSpace(decl)
	base, dims, _ := strings.Cut(decl, "[")
	base = strings.TrimSpace(base)
	if base == "" {
		return Field{}, errors.WithMessagef(ErrInvalidSchema, "empty type %q", decl)
	}

	f := Field{Name: name, Kind: ParseKind(base)}
	if f.Kind == KindMessage {
		f.Type = base
	}
	if dims == "" {
		return f, nil
	}

	rest := "[" + dims
	for rest != "" {
		if rest[0] != '[' {
			return Field{}, errors.WithMessagef(ErrInvalidSchema, "malformed dimensions in %q", decl)
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return Field{}, errors.WithMessagef(ErrInvalidSchema, "unterminated dimension in %q", decl)
		}
		dim := strings.TrimSpace(rest[1:end])
		if dim == "" {
			return Field{}, errors.WithMessagef(ErrInvalidSchema, "empty dimension in %q", decl)
		}
		f.Dims = append(f.Dims, dim)
		rest = strings.TrimSpace(rest[end+1:])
	}
	return f, nil
}
