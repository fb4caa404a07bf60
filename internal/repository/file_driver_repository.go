/*
 *    Copyright 2025 apexrank
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *        http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/apexrank/apexrank/internal/models"
	"go.uber.org/zap"
)

// FileDriverRepository keeps the full driver list in memory and rewrites a
// single JSON array file wholesale after every mutation. There is no
// incremental update protocol; concurrent mutators are last-writer-wins.
type FileDriverRepository struct {
	mu      sync.RWMutex
	path    string
	drivers []models.Driver
	logger  *zap.Logger
}

// NewFileDriverRepository loads the store file at path, creating the parent
// directory if needed. A missing file is an empty store.
func NewFileDriverRepository(path string, logger *zap.Logger) (*FileDriverRepository, error) {
	r := &FileDriverRepository{
		path:   path,
		logger: logger.Named("file_driver_repo"),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			r.drivers = []models.Driver{}
			return r, nil
		}
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	if err := json.Unmarshal(data, &r.drivers); err != nil {
		return nil, fmt.Errorf("failed to parse store file %s: %w", path, err)
	}
	r.logger.Info("Loaded driver store", zap.String("path", path), zap.Int("drivers", len(r.drivers)))
	return r, nil
}

func (r *FileDriverRepository) List(ctx context.Context) ([]models.Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Driver, len(r.drivers))
	copy(out, r.drivers)
	return out, nil
}

func (r *FileDriverRepository) Get(ctx context.Context, externalID string) (*models.Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.drivers {
		if r.drivers[i].ExternalID == externalID {
			d := r.drivers[i]
			return &d, nil
		}
	}
	return nil, nil // Not found
}

func (r *FileDriverRepository) Upsert(ctx context.Context, driver *models.Driver) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	replaced := false
	for i := range r.drivers {
		if r.drivers[i].ExternalID == driver.ExternalID {
			r.drivers[i] = *driver
			replaced = true
			break
		}
	}
	if !replaced {
		r.drivers = append(r.drivers, *driver)
	}
	r.persist()
	r.logger.Info("Upserted driver", zap.String("externalId", driver.ExternalID), zap.Bool("replaced", replaced))
	return nil
}

func (r *FileDriverRepository) Delete(ctx context.Context, externalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.drivers {
		if r.drivers[i].ExternalID == externalID {
			r.drivers = append(r.drivers[:i], r.drivers[i+1:]...)
			r.persist()
			r.logger.Info("Deleted driver", zap.String("externalId", externalID))
			return nil
		}
	}
	return fmt.Errorf("driver with external id %s not found", externalID)
}

func (r *FileDriverRepository) ReplaceAll(ctx context.Context, drivers []models.Driver) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers = make([]models.Driver, len(drivers))
	copy(r.drivers, drivers)
	r.persist()
	r.logger.Info("Replaced driver store", zap.Int("drivers", len(drivers)))
	return nil
}

// persist serializes the whole list and overwrites the store file via a
// temp-file rename. Failures are logged, not propagated: the in-memory state
// stays authoritative and is not rolled back.
func (r *FileDriverRepository) persist() {
	data, err := json.MarshalIndent(r.drivers, "", "  ")
	if err != nil {
		r.logger.Error("Failed to serialize driver store", zap.Error(err))
		return
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		r.logger.Error("Failed to write driver store", zap.String("path", tmp), zap.Error(err))
		return
	}
	if err := os.Rename(tmp, r.path); err != nil {
		r.logger.Error("Failed to replace driver store", zap.String("path", r.path), zap.Error(err))
	}
}

func (r *FileDriverRepository) Close() error {
	return nil
}
