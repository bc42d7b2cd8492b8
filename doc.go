// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package lcm provides a compact binary codec for fixed-schema messages
// exchanged between processes, and a small bus for carrying them.
//
// # Schemas
//
// Each message type is a declared, ordered list of fields. Types are linked
// together in a Registry, which may contain self- and mutually-referencing
// types:
//
//	reg, err := lcm.NewRegistry([]lcm.Schema{{
//	    Name: "lcmt_iiwa_command",
//	    Fields: []lcm.Field{
//	        lcm.Scalar("utime", lcm.KindInt64),
//	        lcm.Scalar("num_joints", lcm.KindInt32),
//	        lcm.Array("joint_position", lcm.KindFloat64, "num_joints"),
//	    },
//	}})
//
// Schemas can also be loaded from YAML with LoadSchemas.
//
// # Wire format
//
// An encoded message is an 8-byte big-endian fingerprint followed by its
// fields in declaration order. Integers and floats are big-endian at their
// natural width, booleans one byte, strings a 4-byte length followed by the
// raw bytes. Arrays carry no length of their own: their length is the value
// of a count field encoded earlier in the same message. Nested messages are
// encoded inline without a fingerprint.
//
// The fingerprint is a structural hash of the type's field kinds and ranks
// and, transitively, of its nested types. Decoding checks it before reading
// anything else and fails with ErrSchemaMismatch when it differs.
//
// # Usage
//
//	t := reg.MustType("lcmt_iiwa_command")
//	data, err := t.Encode(lcm.Value{
//	    "utime":          int64(42),
//	    "joint_position": []float64{1, 2},
//	})
//	v, err := t.Decode(data)
//
// # Bus
//
// The bus relays encoded messages on named channels. TCP is the default
// transport and the only one that can subscribe:
//
//	server, _ := lcm.Listen(":7667")
//	server.Bind("IIWA_COMMAND", t)
//	go server.Serve(ctx)
//
//	client, _ := lcm.Dial(ctx, server.Addr())
//	client.Subscribe(ctx, "IIWA_COMMAND", lcm.Decoded(t, onCommand))
//	lcm.PublishValue(ctx, client, "IIWA_COMMAND", t, v)
//
// A relay can also accept publications over JSON-RPC (HTTPHandler) and gRPC
// (RegisterGRPC), reachable with WithTransport("http") and
// WithTransport("grpc").
package lcm
