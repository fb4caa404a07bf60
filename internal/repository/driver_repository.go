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

	"github.com/apexrank/apexrank/internal/models"
)

// DriverRepository defines the interface for storing and retrieving linked
// drivers. List returns drivers in stored order; ReplaceAll overwrites the
// whole store with the given order, which is what makes repeated leaderboard
// passes with unchanged ratings produce unchanged tie-breaking.
type DriverRepository interface {
	List(ctx context.Context) ([]models.Driver, error)
	// Get returns (nil, nil) when no driver is linked for externalID.
	Get(ctx context.Context, externalID string) (*models.Driver, error)
	Upsert(ctx context.Context, driver *models.Driver) error
	Delete(ctx context.Context, externalID string) error
	ReplaceAll(ctx context.Context, drivers []models.Driver) error
	Close() error
}
