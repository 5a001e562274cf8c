package storage

import (
	"context"
	"sync"
	"time"

	"github.com/vv-aa-ss/CyrrencyConverter/internal/domain"
)

// MemoryStore is a volatile RateStore. It backs tests, and production runs
// degrade to it when the durable backend cannot be opened: conversion keeps
// working with defaults, nothing survives a restart.
type MemoryStore struct {
	mu          sync.RWMutex
	rates       *domain.RateConfig
	prices      domain.PriceSnapshot
	lastSuccess time.Time
	hasSuccess  bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) LoadRates(ctx context.Context) (domain.RateConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rates == nil {
		return domain.DefaultRateConfig(), nil
	}
	return *s.rates, nil
}

func (s *MemoryStore) SaveRates(ctx context.Context, rates domain.RateConfig) error {
	if err := rates.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r := rates
	s.rates = &r
	return nil
}

func (s *MemoryStore) LoadCachedPrices(ctx context.Context) (domain.PriceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.prices == nil {
		return make(domain.PriceSnapshot), nil
	}
	return s.prices.Clone(), nil
}

func (s *MemoryStore) SaveCachedPrices(ctx context.Context, prices domain.PriceSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices = prices.Clone()
	return nil
}

func (s *MemoryStore) LoadLastSuccess(ctx context.Context) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSuccess, s.hasSuccess, nil
}

func (s *MemoryStore) SaveLastSuccess(ctx context.Context, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSuccess = ts
	s.hasSuccess = true
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
