// Package store keeps poculum Values in a byte provider under a namespace.
//
// Every entry is framed with a checksum. Entries that fail the frame check
// or do not decode are deleted and reported as misses, so a store sharing a
// provider with foreign writers heals itself instead of failing reads.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/unkn0wn-root/poculum"
	"github.com/unkn0wn-root/poculum/codec"
	"github.com/unkn0wn-root/poculum/internal/util"
	"github.com/unkn0wn-root/poculum/internal/wire"
	pr "github.com/unkn0wn-root/poculum/provider"
)

type Store struct {
	ns          string
	provider    pr.Provider
	codec       codec.Codec[poculum.Value]
	log         poculum.Logger
	hooks       Hooks
	defaultTTL  time.Duration
	bulkTTL     time.Duration
	setCost     SetCostFunc
	disableBulk bool
}

func New(opts Options) (*Store, error) {
	if opts.Provider == nil {
		return nil, errors.New("store: provider is required")
	}
	if opts.Namespace == "" {
		return nil, errors.New("store: namespace is required")
	}

	s := &Store{
		ns:          opts.Namespace,
		provider:    opts.Provider,
		codec:       opts.Codec,
		log:         coalesce[poculum.Logger](opts.Logger, poculum.NopLogger{}),
		hooks:       coalesce[Hooks](opts.Hooks, NopHooks{}),
		defaultTTL:  coalesce(opts.DefaultTTL, defaultTTL),
		bulkTTL:     coalesce(opts.BulkTTL, defaultTTL),
		setCost:     opts.ComputeSetCost,
		disableBulk: opts.DisableBulk,
	}
	if s.codec == nil {
		s.codec = codec.Poculum{}
	}
	if opts.MaxEntrySize > 0 {
		s.codec = codec.LimitCodec[poculum.Value]{Inner: s.codec, MaxDecode: opts.MaxEntrySize}
	}
	if s.setCost == nil {
		s.setCost = frameCost
	}
	return s, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.provider.Close(ctx)
}

// Get returns the Value stored under key. A provider error is returned
// as is; a corrupt entry is deleted and reported as a miss.
func (s *Store) Get(ctx context.Context, key string) (poculum.Value, bool, error) {
	k := util.SingleKey(s.ns, key)
	raw, ok, err := s.provider.Get(ctx, k)
	if err != nil {
		s.log.Warn("provider get failed", poculum.Fields{"key": key, "err": err})
		return nil, false, fmt.Errorf("store: get %q: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	payload, err := wire.DecodeSingle(raw)
	if err != nil {
		s.heal(ctx, k, err)
		s.hooks.SelfHeal(k, reasonCorrupt)
		return nil, false, nil
	}
	v, err := s.codec.Decode(payload)
	if err != nil {
		s.heal(ctx, k, err)
		s.hooks.SelfHeal(k, reasonValueDecode)
		return nil, false, nil
	}
	return v, true, nil
}

// Set stores v under key. ttl 0 uses DefaultTTL.
func (s *Store) Set(ctx context.Context, key string, v poculum.Value, ttl time.Duration) error {
	payload, err := s.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("store: set %q: %w", key, err)
	}
	return s.put(ctx, key, payload, coalesce(ttl, s.defaultTTL))
}

func (s *Store) put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	k := util.SingleKey(s.ns, key)
	raw := wire.EncodeSingle(payload)
	ok, err := s.provider.Set(ctx, k, raw, s.setCost(k, raw, false, 1), ttl)
	if err != nil {
		s.log.Warn("provider set failed", poculum.Fields{"key": key, "err": err})
		return fmt.Errorf("store: set %q: %w", key, err)
	}
	if !ok {
		s.log.Debug("set rejected by provider (pressure)", poculum.Fields{"key": key})
		s.hooks.ProviderSetRejected(k, false)
	}
	return nil
}

// Del removes key. Bulk entries that contain key are not touched; they
// expire on BulkTTL.
func (s *Store) Del(ctx context.Context, key string) error {
	if err := s.provider.Del(ctx, util.SingleKey(s.ns, key)); err != nil {
		return fmt.Errorf("store: del %q: %w", key, err)
	}
	return nil
}

// GetBulk returns the Values found for keys and, in input order, the keys
// that were not found. A bulk entry written by SetBulk for the same key set
// is tried first; keys it does not cover fall back to single entries.
func (s *Store) GetBulk(ctx context.Context, keys []string) (map[string]poculum.Value, []string, error) {
	out := make(map[string]poculum.Value, len(keys))
	if len(keys) == 0 {
		return out, nil, nil
	}

	if !s.disableBulk {
		bk := util.BulkKey(s.ns, keys)
		raw, ok, err := s.provider.Get(ctx, bk)
		if err != nil {
			s.log.Warn("provider bulk get failed", poculum.Fields{"bulkKey": bk, "err": err})
		}
		if ok {
			if reason, err := s.readBulk(raw, out); err != nil {
				s.heal(ctx, bk, err)
				s.hooks.BulkRejected(s.ns, len(keys), reason)
				clear(out)
			}
		}
	}

	var missing []string
	for _, k := range keys {
		if _, ok := out[k]; ok {
			continue
		}
		v, ok, err := s.Get(ctx, k)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			missing = append(missing, k)
			continue
		}
		out[k] = v
	}
	return out, missing, nil
}

func (s *Store) readBulk(raw []byte, out map[string]poculum.Value) (string, error) {
	items, err := wire.DecodeBulk(raw)
	if err != nil {
		return reasonCorrupt, err
	}
	for _, it := range items {
		v, err := s.codec.Decode(it.Payload)
		if err != nil {
			return reasonValueDecode, fmt.Errorf("bulk item %q: %w", it.Key, err)
		}
		out[it.Key] = v
	}
	return "", nil
}

// SetBulk stores items as one bulk entry and also as single entries, so
// both GetBulk over the same key set and Get of any member hit. ttl 0 uses
// BulkTTL for the bulk entry; singles always use DefaultTTL. Nothing is
// written when any item fails to encode.
func (s *Store) SetBulk(ctx context.Context, items map[string]poculum.Value, ttl time.Duration) error {
	if len(items) == 0 {
		return nil
	}

	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	wireItems := make([]wire.BulkItem, 0, len(items))
	for _, k := range keys {
		payload, err := s.codec.Encode(items[k])
		if err != nil {
			return fmt.Errorf("store: set bulk %q: %w", k, err)
		}
		wireItems = append(wireItems, wire.BulkItem{Key: k, Payload: payload})
	}

	if !s.disableBulk {
		if err := s.putBulk(ctx, keys, wireItems, coalesce(ttl, s.bulkTTL)); err != nil {
			return err
		}
	}

	for _, it := range wireItems {
		if err := s.put(ctx, it.Key, it.Payload, s.defaultTTL); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) putBulk(ctx context.Context, keys []string, items []wire.BulkItem, ttl time.Duration) error {
	raw, err := wire.EncodeBulk(items)
	if err != nil {
		return fmt.Errorf("store: set bulk: %w", err)
	}
	bk := util.BulkKey(s.ns, keys)
	ok, err := s.provider.Set(ctx, bk, raw, s.setCost(bk, raw, true, len(items)), ttl)
	if err != nil {
		s.log.Warn("provider bulk set failed", poculum.Fields{"bulkKey": bk, "err": err})
		return fmt.Errorf("store: set bulk: %w", err)
	}
	if !ok {
		s.log.Debug("bulk set rejected by provider (pressure)", poculum.Fields{"bulkKey": bk, "n": len(items)})
		s.hooks.ProviderSetRejected(bk, true)
	}
	return nil
}

// heal drops an entry that failed validation.
func (s *Store) heal(ctx context.Context, storageKey string, cause error) {
	s.log.Debug("dropping corrupt entry", poculum.Fields{"key": storageKey, "err": cause})
	if err := s.provider.Del(ctx, storageKey); err != nil {
		s.log.Warn("provider del failed", poculum.Fields{"key": storageKey, "err": err})
	}
}
