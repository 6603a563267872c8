// Copyright 2021-2022
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog/log"

	"github.com/penny-vault/ca-validator/config"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache is a two level cache: an in-process LRU backed by an optional redis
// server. Values are stored lz4 compressed. A nil *Cache is valid and
// always misses.
type Cache struct {
	local *lru.Cache
	rdb   *redis.Client
	ttl   time.Duration
}

func NewCache(conf config.Cache) (*Cache, error) {
	size := conf.LocalSize
	if size <= 0 {
		size = 1
	}

	local, err := lru.New(size)
	if err != nil {
		log.Error().Err(err).Msg("could not create LRU cache")
		return nil, err
	}

	c := &Cache{
		local: local,
		ttl:   conf.Expiry(),
	}

	if conf.Redis {
		opt, err := redis.ParseURL(conf.RedisURL)
		if err != nil {
			log.Error().Err(err).Msg("could not parse redis URL")
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		c.rdb = redis.NewClient(opt)
	}

	return c, nil
}

func (c *Cache) Set(ctx context.Context, key string, val []byte) error {
	if c == nil {
		return nil
	}

	compressed, err := compress(val)
	if err != nil {
		return err
	}
	c.local.Add(key, compressed)

	if c.rdb != nil {
		return c.rdb.Set(ctx, key, compressed, c.ttl).Err()
	}
	return nil
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	if c == nil {
		return nil, ErrCacheMiss
	}

	if v, ok := c.local.Get(key); ok {
		return decompress(v.([]byte))
	}

	if c.rdb == nil {
		return nil, ErrCacheMiss
	}

	val, err := c.rdb.GetEx(ctx, key, c.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	c.local.Add(key, val)
	return decompress(val)
}

// Purge empties the in-process tier. Entries held by redis expire on their
// own TTL.
func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.local.Purge()
}

func (c *Cache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
