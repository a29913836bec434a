// Package cache provides outbound.Cache implementations for the feed read paths.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/medme/secwatch/internal/domain/port/outbound"
)

// Memory is a process-local LRU whose entries expire after a fixed TTL.
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = 128
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

var _ outbound.Cache = (*Memory)(nil)

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	return m.lru.Get(key)
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.lru.Add(key, value)
	return nil
}

func (m *Memory) Purge(_ context.Context) error {
	m.lru.Purge()
	return nil
}

// Len returns the number of live entries.
func (m *Memory) Len() int { return m.lru.Len() }

// Noop never stores anything. It is used when caching is disabled.
type Noop struct{}

var _ outbound.Cache = Noop{}

func (Noop) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (Noop) Set(context.Context, string, []byte) error  { return nil }
func (Noop) Purge(context.Context) error                { return nil }
