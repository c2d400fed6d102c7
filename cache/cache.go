// Copyright 2025 Google LLC
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

// Package cache stores SUT responses in SQLite so repeated runs over the
// same prompts do not re-bill the vendor. Entries are keyed by a digest of
// the SUT UID and the full prompt (text plus options); an in-process LRU
// sits in front of the database. Cache hits count as real responses.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	lru "github.com/hashicorp/golang-lru/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/asa1997/modelbench"
)

const defaultLRUSize = 4096

// Entry is the stored row: one normalized response per (SUT, prompt) digest.
type Entry struct {
	Key       string `gorm:"primaryKey"`
	SUTUID    string `gorm:"index"`
	Response  []byte
	CreatedAt time.Time
}

// Cache is safe for concurrent use; gorm serializes access to the SQLite
// handle and the LRU is internally locked.
type Cache struct {
	db  *gorm.DB
	lru *lru.Cache[string, *modelbench.SUTResponse]
}

// Open opens (or creates) the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("cache: opening %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("cache: migrating schema: %w", err)
	}

	front, err := lru.New[string, *modelbench.SUTResponse](defaultLRUSize)
	if err != nil {
		return nil, fmt.Errorf("cache: creating LRU: %w", err)
	}
	return &Cache{db: db, lru: front}, nil
}

// Key digests a (SUT UID, prompt) pair. The prompt's options are part of the
// digest: the same text with different sampling options is a different key.
func Key(sutUID string, prompt *modelbench.Prompt) (string, error) {
	encoded, err := json.Marshal(prompt)
	if err != nil {
		return "", fmt.Errorf("cache: encoding prompt: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(sutUID))
	h.Write([]byte{0})
	h.Write(encoded)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get returns the cached response for a (SUT, prompt) pair, if any.
func (c *Cache) Get(sutUID string, prompt *modelbench.Prompt) (*modelbench.SUTResponse, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	key, err := Key(sutUID, prompt)
	if err != nil {
		return nil, false, err
	}

	if resp, ok := c.lru.Get(key); ok {
		return resp, true, nil
	}

	var entry Entry
	if err := c.db.First(&entry, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: reading %s: %w", key, err)
	}

	var resp modelbench.SUTResponse
	if err := json.Unmarshal(entry.Response, &resp); err != nil {
		return nil, false, fmt.Errorf("cache: decoding entry %s: %w", key, err)
	}
	c.lru.Add(key, &resp)
	return &resp, true, nil
}

// Put stores a response for a (SUT, prompt) pair, replacing any previous
// entry for the same key.
func (c *Cache) Put(sutUID string, prompt *modelbench.Prompt, resp *modelbench.SUTResponse) error {
	if c == nil {
		return nil
	}
	key, err := Key(sutUID, prompt)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("cache: encoding response: %w", err)
	}

	entry := Entry{
		Key:       key,
		SUTUID:    sutUID,
		Response:  encoded,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&entry).Error; err != nil {
		return fmt.Errorf("cache: writing %s: %w", key, err)
	}
	c.lru.Add(key, resp)
	return nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
