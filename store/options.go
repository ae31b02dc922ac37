package store

import (
	"time"

	"github.com/unkn0wn-root/poculum"
	"github.com/unkn0wn-root/poculum/codec"
	pr "github.com/unkn0wn-root/poculum/provider"
)

// SetCostFunc reports the cost of a provider write. raw is the framed entry.
type SetCostFunc func(key string, raw []byte, isBulk bool, bulkCount int) int64

// Options configure a Store. Only Namespace and Provider are required.
type Options struct {
	Namespace string // isolates keys. e.g. "session", "profile"
	Provider  pr.Provider

	Codec          codec.Codec[poculum.Value] // nil => codec.Poculum{}
	Logger         poculum.Logger             // nil => NopLogger
	DefaultTTL     time.Duration              // singles; 0 => 10m
	BulkTTL        time.Duration              // bulks; 0 => 10m
	ComputeSetCost SetCostFunc                // nil => frame length
	MaxEntrySize   int                        // payloads larger than this read as corrupt; 0 => unlimited
	Hooks          Hooks                      // nil => NopHooks
	DisableBulk    bool
}

const defaultTTL = 10 * time.Minute

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

func frameCost(_ string, raw []byte, _ bool, _ int) int64 { return int64(len(raw)) }
