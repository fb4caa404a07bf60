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
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/apexrank/apexrank/internal/config"
	"github.com/apexrank/apexrank/internal/models"
	"github.com/apexrank/apexrank/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const driverCollection = "drivers"

// firestoreDriver wraps a Driver with its stored position so List can return
// drivers in the same order ReplaceAll wrote them. That order is the
// tie-breaker for equal ratings.
type firestoreDriver struct {
	models.Driver
	Position int `firestore:"position"`
}

// FirestoreDriverRepository is a Firestore implementation of the
// DriverRepository. OAuth tokens are encrypted at rest when a secret key is
// configured.
type FirestoreDriverRepository struct {
	client *firestore.Client
	logger *zap.Logger
	config *config.Config
}

// NewFirestoreDriverRepository creates a new FirestoreDriverRepository.
func NewFirestoreDriverRepository(ctx context.Context, projectID string, logger *zap.Logger, cfg *config.Config) (*FirestoreDriverRepository, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &FirestoreDriverRepository{
		client: client,
		logger: logger.Named("firestore_driver_repo"),
		config: cfg,
	}, nil
}

func (r *FirestoreDriverRepository) List(ctx context.Context) ([]models.Driver, error) {
	iter := r.client.Collection(driverCollection).OrderBy("position", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var drivers []models.Driver
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list drivers: %w", err)
		}
		var fd firestoreDriver
		if err := doc.DataTo(&fd); err != nil {
			return nil, fmt.Errorf("failed to decode driver %s: %w", doc.Ref.ID, err)
		}
		driver, err := r.decryptDriver(&fd.Driver)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, *driver)
	}
	return drivers, nil
}

func (r *FirestoreDriverRepository) Get(ctx context.Context, externalID string) (*models.Driver, error) {
	doc, err := r.client.Collection(driverCollection).Doc(externalID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get driver: %w", err)
	}
	var fd firestoreDriver
	if err := doc.DataTo(&fd); err != nil {
		return nil, fmt.Errorf("failed to decode driver data: %w", err)
	}
	return r.decryptDriver(&fd.Driver)
}

func (r *FirestoreDriverRepository) Upsert(ctx context.Context, driver *models.Driver) error {
	encrypted, err := r.encryptDriver(driver)
	if err != nil {
		return err
	}

	docRef := r.client.Collection(driverCollection).Doc(driver.ExternalID)
	position, err := r.nextPosition(ctx, docRef)
	if err != nil {
		return err
	}

	_, err = docRef.Set(ctx, firestoreDriver{Driver: *encrypted, Position: position})
	if err != nil {
		return fmt.Errorf("failed to upsert driver in firestore: %w", err)
	}
	r.logger.Info("Upserted driver in Firestore", zap.String("externalId", driver.ExternalID))
	return nil
}

// nextPosition keeps an existing driver's position on update and appends new
// drivers after the current tail.
func (r *FirestoreDriverRepository) nextPosition(ctx context.Context, docRef *firestore.DocumentRef) (int, error) {
	doc, err := docRef.Get(ctx)
	if err == nil {
		var fd firestoreDriver
		if err := doc.DataTo(&fd); err != nil {
			return 0, fmt.Errorf("failed to decode existing driver: %w", err)
		}
		return fd.Position, nil
	}
	if status.Code(err) != codes.NotFound {
		return 0, fmt.Errorf("failed to check existing driver: %w", err)
	}

	docs, err := r.client.Collection(driverCollection).Documents(ctx).GetAll()
	if err != nil {
		return 0, fmt.Errorf("failed to count drivers: %w", err)
	}
	return len(docs), nil
}

func (r *FirestoreDriverRepository) Delete(ctx context.Context, externalID string) error {
	_, err := r.client.Collection(driverCollection).Doc(externalID).Delete(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("failed to delete driver: %w", err)
	}
	r.logger.Info("Deleted driver from Firestore", zap.String("externalId", externalID))
	return nil
}

func (r *FirestoreDriverRepository) ReplaceAll(ctx context.Context, drivers []models.Driver) error {
	existing, err := r.client.Collection(driverCollection).Documents(ctx).GetAll()
	if err != nil {
		return fmt.Errorf("failed to list drivers for replace: %w", err)
	}

	keep := make(map[string]struct{}, len(drivers))
	for _, d := range drivers {
		keep[d.ExternalID] = struct{}{}
	}
	for _, doc := range existing {
		if _, ok := keep[doc.Ref.ID]; ok {
			continue
		}
		if _, err := doc.Ref.Delete(ctx); err != nil {
			return fmt.Errorf("failed to delete stale driver %s: %w", doc.Ref.ID, err)
		}
	}

	for i, d := range drivers {
		encrypted, err := r.encryptDriver(&d)
		if err != nil {
			return err
		}
		_, err = r.client.Collection(driverCollection).Doc(d.ExternalID).Set(ctx, firestoreDriver{Driver: *encrypted, Position: i})
		if err != nil {
			return fmt.Errorf("failed to write driver %s: %w", d.ExternalID, err)
		}
	}
	r.logger.Info("Replaced driver store in Firestore", zap.Int("drivers", len(drivers)))
	return nil
}

func (r *FirestoreDriverRepository) Close() error {
	return r.client.Close()
}

// encryptDriver encrypts the OAuth tokens in the Driver struct.
func (r *FirestoreDriverRepository) encryptDriver(driver *models.Driver) (*models.Driver, error) {
	if r.config.SecretKey == "" {
		return driver, nil
	}
	encrypted := *driver
	var err error
	if encrypted.AccessToken != "" {
		encrypted.AccessToken, err = utils.Encrypt(encrypted.AccessToken, r.config.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt access token: %w", err)
		}
	}
	if encrypted.RefreshToken != "" {
		encrypted.RefreshToken, err = utils.Encrypt(encrypted.RefreshToken, r.config.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
	}
	return &encrypted, nil
}

// decryptDriver decrypts the OAuth tokens in the Driver struct.
func (r *FirestoreDriverRepository) decryptDriver(driver *models.Driver) (*models.Driver, error) {
	if r.config.SecretKey == "" {
		return driver, nil
	}
	decrypted := *driver
	var err error
	if decrypted.AccessToken != "" {
		decrypted.AccessToken, err = utils.Decrypt(decrypted.AccessToken, r.config.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt access token: %w", err)
		}
	}
	if decrypted.RefreshToken != "" {
		decrypted.RefreshToken, err = utils.Decrypt(decrypted.RefreshToken, r.config.SecretKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
		}
	}
	return &decrypted, nil
}
