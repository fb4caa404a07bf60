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
	"fmt"
	"sync"

	"github.com/apexrank/apexrank/internal/models"
	"go.uber.org/zap"
)

// InMemoryDriverRepository is an in-memory implementation of the
// DriverRepository, for tests and local development.
type InMemoryDriverRepository struct {
	mu      sync.RWMutex
	drivers []models.Driver
	logger  *zap.Logger
}

// NewInMemoryDriverRepository creates a new InMemoryDriverRepository.
func NewInMemoryDriverRepository(logger *zap.Logger) *InMemoryDriverRepository {
	return &InMemoryDriverRepository{
		drivers: []models.Driver{},
		logger:  logger.Named("inmemory_driver_repo"),
	}
}

func (r *InMemoryDriverRepository) List(ctx context.Context) ([]models.Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Driver, len(r.drivers))
	copy(out, r.drivers)
	return out, nil
}

func (r *InMemoryDriverRepository) Get(ctx context.Context, externalID string) (*models.Driver, error) {
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

func (r *InMemoryDriverRepository) Upsert(ctx context.Context, driver *models.Driver) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.drivers {
		if r.drivers[i].ExternalID == driver.ExternalID {
			r.drivers[i] = *driver
			return nil
		}
	}
	r.drivers = append(r.drivers, *driver)
	r.logger.Info("Created driver in-memory", zap.String("externalId", driver.ExternalID))
	return nil
}

func (r *InMemoryDriverRepository) Delete(ctx context.Context, externalID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.drivers {
		if r.drivers[i].ExternalID == externalID {
			r.drivers = append(r.drivers[:i], r.drivers[i+1:]...)
			r.logger.Info("Deleted driver in-memory", zap.String("externalId", externalID))
			return nil
		}
	}
	return fmt.Errorf("driver with external id %s not found", externalID)
}

func (r *InMemoryDriverRepository) ReplaceAll(ctx context.Context, drivers []models.Driver) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers = make([]models.Driver, len(drivers))
	copy(r.drivers, drivers)
	return nil
}

func (r *InMemoryDriverRepository) Close() error {
	return nil
}
