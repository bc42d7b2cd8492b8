// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lcm

import (
	"context"
	"sort"
	"sync"
)

// Transport types
const (
	TransportTCP  = "tcp"  // Framed TCP to a bus relay, default
	TransportGRPC = "grpc" // Publish through a relay's gRPC service
	TransportHTTP = "http" // Publish through a relay's JSON-RPC endpoint
)

// DefaultTransport is the default transport type (TCP)
const DefaultTransport = TransportTCP

type dialFunc func(ctx context.Context, addr string, o *dialOptions) (Client, error)

var (
	transportsMu sync.RWMutex
	transports   = map[string]dialFunc{
		TransportTCP: dialTCP,
	}
)

// registerTransport registers a new transport
func registerTransport(name string, dial dialFunc) {
	transportsMu.Lock()
	defer transportsMu.Unlock()
	transports[name] = dial
}

func lookupTransport(name string) (dialFunc, bool) {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	dial, ok := transports[name]
	return dial, ok
}

// AvailableTransports returns the sorted list of available transport types
func AvailableTransports() []string {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	result := make([]string, 0, len(transports))
	for name := range transports {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// HasTransport checks if a transport is available
func HasTransport(name string) bool {
	_, ok := lookupTransport(name)
	return ok
}
