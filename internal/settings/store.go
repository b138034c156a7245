package settings

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/spf13/cast"

	"github.com/meridian-hq/meridian-admin/internal/cache"
	"github.com/meridian-hq/meridian-admin/internal/shared"
)

// SettingTTL bounds staleness of mirrored settings values.
const SettingTTL = time.Hour

const allKey = "settings:all"

// Store layers a mirrored cache over the settings repository and hands
// out typed values. Cache failures degrade to the database; database
// failures degrade to vocabulary defaults.
type Store struct {
	repo   RepositoryPort
	cache  cache.Store
	logger *slog.Logger
}

// NewStore constructs a Store.
func NewStore(repo RepositoryPort, cacheStore cache.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{repo: repo, cache: cacheStore, logger: logger}
}

// Get resolves one setting's raw value, falling back to the declared
// default when the key was never written.
func (s *Store) Get(ctx context.Context, key string) string {
	def, known := Vocabulary()[key]
	if payload, err := s.cache.Get(ctx, cacheKey(key)); err == nil {
		return string(payload)
	} else if err != cache.ErrMiss {
		s.logger.Warn("settings cache read", slog.String("key", key), slog.Any("error", err))
	}

	setting, err := s.repo.GetSetting(ctx, key)
	if err != nil {
		if shared.KindOf(err) != shared.KindNotFound {
			s.logger.Warn("settings read", slog.String("key", key), slog.Any("error", err))
		}
		if known {
			return def.Default
		}
		return ""
	}
	if err := s.cache.Set(ctx, cacheKey(key), []byte(setting.Value), SettingTTL); err != nil {
		s.logger.Warn("settings cache write", slog.String("key", key), slog.Any("error", err))
	}
	return setting.Value
}

// String resolves a string setting.
func (s *Store) String(ctx context.Context, key string) string {
	return s.Get(ctx, key)
}

// Int resolves an integer setting.
func (s *Store) Int(ctx context.Context, key string) int {
	return cast.ToInt(s.Get(ctx, key))
}

// Bool resolves a boolean setting.
func (s *Store) Bool(ctx context.Context, key string) bool {
	return cast.ToBool(s.Get(ctx, key))
}

// JSON decodes a json setting into dst. Unparseable stored values fall
// back to the vocabulary default.
func (s *Store) JSON(ctx context.Context, key string, dst any) error {
	raw := s.Get(ctx, key)
	if err := json.Unmarshal([]byte(raw), dst); err == nil {
		return nil
	}
	if def, ok := Vocabulary()[key]; ok {
		return json.Unmarshal([]byte(def.Default), dst)
	}
	return shared.ValidationError(map[string]string{key: "unknown setting"})
}

// All returns the full vocabulary with stored values overlaid on
// defaults, ordered by key via the repository listing.
func (s *Store) All(ctx context.Context) ([]Setting, error) {
	if payload, err := s.cache.Get(ctx, allKey); err == nil {
		var out []Setting
		if err := json.Unmarshal(payload, &out); err == nil {
			return out, nil
		}
	} else if err != cache.ErrMiss {
		s.logger.Warn("settings cache read", slog.String("key", allKey), slog.Any("error", err))
	}

	stored, err := s.repo.ListSettings(ctx)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]Setting, len(stored))
	for _, setting := range stored {
		byKey[setting.Key] = setting
	}
	vocab := Vocabulary()
	out := make([]Setting, 0, len(vocab))
	for _, key := range orderedKeys() {
		if setting, ok := byKey[key]; ok {
			out = append(out, setting)
			continue
		}
		def := vocab[key]
		out = append(out, Setting{Key: key, Value: def.Default, Type: def.Type})
	}

	if payload, err := json.Marshal(out); err == nil {
		if err := s.cache.Set(ctx, allKey, payload, SettingTTL); err != nil {
			s.logger.Warn("settings cache write", slog.String("key", allKey), slog.Any("error", err))
		}
	}
	return out, nil
}

// Validate checks one key/value pair against the vocabulary without
// writing anything. Batch writers run it over the whole payload before
// the first write.
func (s *Store) Validate(key, value string) error {
	def, ok := Vocabulary()[key]
	if !ok {
		return shared.ValidationError(map[string]string{key: "unknown setting"})
	}
	switch def.Type {
	case TypeInteger:
		if _, err := cast.ToIntE(value); err != nil {
			return shared.ValidationError(map[string]string{key: "must be an integer"})
		}
	case TypeBoolean:
		if _, err := cast.ToBoolE(value); err != nil {
			return shared.ValidationError(map[string]string{key: "must be a boolean"})
		}
	case TypeJSON:
		if !json.Valid([]byte(value)) {
			return shared.ValidationError(map[string]string{key: "must be valid JSON"})
		}
	}
	return nil
}

// Set validates and persists one key, then drops both mirror entries.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.Validate(key, value); err != nil {
		return err
	}
	def := Vocabulary()[key]
	if err := s.repo.UpsertSetting(ctx, key, value, def.Type); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, cacheKey(key), allKey); err != nil {
		s.logger.Warn("settings cache invalidate", slog.String("key", key), slog.Any("error", err))
	}
	return nil
}

func cacheKey(key string) string {
	return "settings:" + key
}

func orderedKeys() []string {
	return []string{
		KeyAllowRegistration,
		KeyCompanyAddress,
		KeyCompanyEmail,
		KeyCompanyLogo,
		KeyCompanyName,
		KeyCompanyPhone,
		KeyCurrency,
		KeyCurrencySymbolPosition,
		KeyDateFormat,
		KeyFeatureFlags,
		KeyItemsPerPage,
		KeyRequireEmailVerification,
		KeySessionTimeout,
		KeyTimezone,
	}
}
