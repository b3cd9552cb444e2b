// Package kv is the durable key-value storage the cart persists into. Values
// are opaque bytes; a missing key is reported with ok=false, not an error.
package kv

import "context"

type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Put(ctx context.Context, key string, value []byte) error
}

// Pinger is implemented by stores backed by something that can be down.
type Pinger interface {
	Ping(ctx context.Context) error
}
