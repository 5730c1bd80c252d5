package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"designhub/internal/common"
	"designhub/internal/domain/model"
	"designhub/internal/domain/moderation"
	"designhub/internal/domain/repository"
	"designhub/internal/platform/cache"
	"designhub/internal/platform/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type MetadataService struct {
	metadataRepo repository.MetadataRepository
	keyCache     *cache.MetadataKeyCache // nil disables caching
	guard        *moderation.Guard
	now          func() time.Time
}

func NewMetadataService(metadataRepo repository.MetadataRepository, keyCache *cache.MetadataKeyCache, guard *moderation.Guard) *MetadataService {
	return &MetadataService{
		metadataRepo: metadataRepo,
		keyCache:     keyCache,
		guard:        guard,
		now:          time.Now,
	}
}

type CreateMetadataRequest struct {
	Type        model.MetadataType `json:"type"`
	Key         string             `json:"key"`
	Label       string             `json:"label"`
	Description *string            `json:"description,omitempty"`
	Order       int                `json:"order"`
}

type UpdateMetadataRequest struct {
	Label       *string `json:"label,omitempty"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
	Order       *int    `json:"order,omitempty"`
}

func parseMetadataType(raw string) (model.MetadataType, error) {
	typ := model.MetadataType(strings.ToUpper(strings.TrimSpace(raw)))
	if typ != "" && !typ.Valid() {
		return "", fmt.Errorf("unknown metadata type %q: %w", raw, common.ErrValidation)
	}
	return typ, nil
}

// ListActive returns active entries ordered for display. An empty type lists both types.
func (s *MetadataService) ListActive(ctx context.Context, rawType string) ([]model.Metadata, error) {
	typ, err := parseMetadataType(rawType)
	if err != nil {
		return nil, err
	}
	return s.metadataRepo.ListMetadata(ctx, typ, true)
}

func (s *MetadataService) Create(ctx context.Context, who *model.Identity, req CreateMetadataRequest) (*model.Metadata, error) {
	if err := s.guard.Permit(who, moderation.OpManageMetadata, ""); err != nil {
		return nil, err
	}
	typ, err := parseMetadataType(string(req.Type))
	if err != nil {
		return nil, err
	}
	key := strings.ToUpper(strings.TrimSpace(req.Key))
	label := strings.TrimSpace(req.Label)
	if typ == "" || key == "" || label == "" {
		return nil, fmt.Errorf("type, key and label are required: %w", common.ErrValidation)
	}

	now := s.now()
	m := &model.Metadata{
		ID:          uuid.NewString(),
		Type:        typ,
		Key:         key,
		Label:       label,
		Description: req.Description,
		IsActive:    true,
		Order:       req.Order,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.metadataRepo.CreateMetadata(ctx, m); err != nil {
		return nil, err
	}
	s.invalidate(ctx, typ)
	logger.Info(ctx, "metadata created", zap.String("type", string(typ)), zap.String("key", key))
	return m, nil
}

func (s *MetadataService) Update(ctx context.Context, who *model.Identity, id string, req UpdateMetadataRequest) (*model.Metadata, error) {
	if err := s.guard.Permit(who, moderation.OpManageMetadata, ""); err != nil {
		return nil, err
	}
	m, err := s.metadataRepo.FindMetadataByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Label != nil {
		label := strings.TrimSpace(*req.Label)
		if label == "" {
			return nil, fmt.Errorf("label cannot be empty: %w", common.ErrValidation)
		}
		m.Label = label
	}
	if req.Description != nil {
		m.Description = req.Description
	}
	if req.IsActive != nil {
		m.IsActive = *req.IsActive
	}
	if req.Order != nil {
		m.Order = *req.Order
	}
	m.UpdatedAt = s.now()

	if err := s.metadataRepo.UpdateMetadata(ctx, m); err != nil {
		return nil, err
	}
	s.invalidate(ctx, m.Type)
	return m, nil
}

// Deactivate hides an entry from the registry. Existing problems keep their key.
func (s *MetadataService) Deactivate(ctx context.Context, who *model.Identity, id string) error {
	inactive := false
	_, err := s.Update(ctx, who, id, UpdateMetadataRequest{IsActive: &inactive})
	return err
}

// defaultMetadata seeds an empty registry.
var defaultMetadata = []CreateMetadataRequest{
	{Type: model.MetadataTypeCategory, Key: "WEB", Label: "Web", Order: 1},
	{Type: model.MetadataTypeCategory, Key: "SYSTEMS", Label: "Systems", Order: 2},
	{Type: model.MetadataTypeCategory, Key: "DATA", Label: "Data", Order: 3},
	{Type: model.MetadataTypeCategory, Key: "BLOCKCHAIN", Label: "Blockchain", Order: 4},
	{Type: model.MetadataTypeProblemType, Key: "PROJECT", Label: "Project", Order: 1},
	{Type: model.MetadataTypeProblemType, Key: "HACKATHON", Label: "Hackathon", Order: 2},
	{Type: model.MetadataTypeProblemType, Key: "INTERVIEW", Label: "Interview", Order: 3},
}

// SeedDefaults fills the registry with the default taxonomy when it holds no entries at all.
func (s *MetadataService) SeedDefaults(ctx context.Context) error {
	existing, err := s.metadataRepo.ListMetadata(ctx, "", false)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	now := s.now()
	for _, d := range defaultMetadata {
		m := &model.Metadata{
			ID:        uuid.NewString(),
			Type:      d.Type,
			Key:       d.Key,
			Label:     d.Label,
			IsActive:  true,
			Order:     d.Order,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.metadataRepo.CreateMetadata(ctx, m); err != nil && !errors.Is(err, common.ErrConflict) {
			return err
		}
	}
	s.invalidate(ctx, model.MetadataTypeCategory)
	s.invalidate(ctx, model.MetadataTypeProblemType)
	logger.Info(ctx, "metadata registry seeded", zap.Int("entries", len(defaultMetadata)))
	return nil
}

// Validate normalizes category and problem type to uppercase and checks both
// against the active registry.
func (s *MetadataService) Validate(ctx context.Context, category, problemType string) (string, string, error) {
	category, err := s.ValidateKey(ctx, model.MetadataTypeCategory, category)
	if err != nil {
		return "", "", err
	}
	problemType, err = s.ValidateKey(ctx, model.MetadataTypeProblemType, problemType)
	if err != nil {
		return "", "", err
	}
	return category, problemType, nil
}

// ValidateKey returns the normalized key or a validation error naming the type.
func (s *MetadataService) ValidateKey(ctx context.Context, typ model.MetadataType, raw string) (string, error) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	invalid := common.ErrInvalidCategory
	if typ == model.MetadataTypeProblemType {
		invalid = common.ErrInvalidProblemType
	}
	if key == "" {
		return "", invalid
	}

	active, err := s.isActive(ctx, typ, key)
	if err != nil {
		return "", err
	}
	if !active {
		return "", fmt.Errorf("%q: %w", key, invalid)
	}
	return key, nil
}

func (s *MetadataService) isActive(ctx context.Context, typ model.MetadataType, key string) (bool, error) {
	if s.keyCache != nil {
		active, err := s.keyCache.IsActive(ctx, string(typ), key)
		if err == nil {
			return active, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn(ctx, "metadata cache unavailable, reading registry", zap.Error(err))
		}
	}

	items, err := s.metadataRepo.ListMetadata(ctx, typ, true)
	if err != nil {
		return false, err
	}
	keys := make([]string, 0, len(items))
	found := false
	for _, m := range items {
		keys = append(keys, m.Key)
		if m.Key == key {
			found = true
		}
	}

	if s.keyCache != nil {
		if err := s.keyCache.Fill(ctx, string(typ), keys); err != nil {
			logger.Warn(ctx, "metadata cache fill failed", zap.String("type", string(typ)), zap.Error(err))
		}
	}
	return found, nil
}

func (s *MetadataService) invalidate(ctx context.Context, typ model.MetadataType) {
	if s.keyCache == nil {
		return
	}
	if err := s.keyCache.Invalidate(ctx, string(typ)); err != nil {
		logger.Warn(ctx, "metadata cache invalidation failed", zap.String("type", string(typ)), zap.Error(err))
	}
}
