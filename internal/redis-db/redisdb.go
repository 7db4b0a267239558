/*
Copyright 2025 Statledger Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package redis_db

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps a universal client so the same type serves a single instance
// or a cluster.
type Redis struct {
	addresses []string
	client    redis.UniversalClient
}

// ParseRedisURL accepts both full redis:// URLs and bare docker-style
// host:port addresses.
func ParseRedisURL(rawURL string) (*redis.Options, error) {
	if strings.Count(rawURL, ":") == 1 && !strings.Contains(rawURL, "@") && !strings.Contains(rawURL, "//") {
		return &redis.Options{Addr: rawURL}, nil
	}
	return redis.ParseURL(rawURL)
}

// NewRedisClient creates a client for the given addresses. One address means
// a standalone instance, more than one a cluster.
func NewRedisClient(addresses []string) (*Redis, error) {
	if len(addresses) == 0 {
		return nil, errors.New("redis addresses list cannot be empty")
	}

	var client redis.UniversalClient
	if len(addresses) == 1 {
		opts, err := ParseRedisURL(addresses[0])
		if err != nil {
			return nil, err
		}
		client = redis.NewClient(opts)
	} else {
		var clusterAddrs []string
		var password string
		for _, addr := range addresses {
			opts, err := ParseRedisURL(addr)
			if err != nil {
				return nil, err
			}
			clusterAddrs = append(clusterAddrs, opts.Addr)
			if password == "" && opts.Password != "" {
				password = opts.Password
			}
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    clusterAddrs,
			Password: password,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, err
	}
	return &Redis{addresses: addresses, client: client}, nil
}

// Client returns the underlying universal client.
func (r *Redis) Client() redis.UniversalClient {
	return r.client
}

// MakeRedisClient satisfies asynq's connection option interface.
func (r *Redis) MakeRedisClient() interface{} {
	return r.client
}
