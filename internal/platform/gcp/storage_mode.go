package gcp

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/yungbote/carousel-backend/internal/platform/envutil"
)

type ObjectStorageMode string

const (
	ObjectStorageModeGCS         ObjectStorageMode = "gcs"
	ObjectStorageModeGCSEmulator ObjectStorageMode = "gcs_emulator"
	// ObjectStorageModeLocal writes objects to a directory on disk. It is
	// served by the localstore package, not by BucketService.
	ObjectStorageModeLocal ObjectStorageMode = "local"
)

type ObjectStorageConfig struct {
	Mode         ObjectStorageMode
	EmulatorHost string
	LocalDir     string
	// Fallback is true when the mode was inferred from STORAGE_EMULATOR_HOST.
	Fallback bool
}

func (cfg ObjectStorageConfig) IsEmulatorMode() bool { return cfg.Mode == ObjectStorageModeGCSEmulator }
func (cfg ObjectStorageConfig) IsLocalMode() bool    { return cfg.Mode == ObjectStorageModeLocal }

func (cfg ObjectStorageConfig) ModeSource() string {
	if cfg.Fallback {
		return "compatibility_fallback"
	}
	return "explicit_or_default"
}

type ObjectStorageConfigError struct {
	Field string
	Value string
	Cause error
}

func (e *ObjectStorageConfigError) Error() string {
	switch e.Field {
	case "OBJECT_STORAGE_MODE":
		return fmt.Sprintf("invalid OBJECT_STORAGE_MODE=%q (allowed: %q, %q, %q)",
			e.Value, ObjectStorageModeGCS, ObjectStorageModeGCSEmulator, ObjectStorageModeLocal)
	case "STORAGE_EMULATOR_HOST":
		if e.Value == "" {
			return fmt.Sprintf("OBJECT_STORAGE_MODE=%q requires STORAGE_EMULATOR_HOST to be set", ObjectStorageModeGCSEmulator)
		}
		return fmt.Sprintf("invalid STORAGE_EMULATOR_HOST=%q; expected absolute URL like http://fake-gcs:4443", e.Value)
	case "LOCAL_STORAGE_DIR":
		return fmt.Sprintf("OBJECT_STORAGE_MODE=%q requires LOCAL_STORAGE_DIR", ObjectStorageModeLocal)
	default:
		return "invalid object storage config"
	}
}

func (e *ObjectStorageConfigError) Unwrap() error { return e.Cause }

func ResolveObjectStorageConfigFromEnv() (ObjectStorageConfig, error) {
	cfg := ObjectStorageConfig{
		EmulatorHost: envutil.String("STORAGE_EMULATOR_HOST", ""),
		LocalDir:     envutil.String("LOCAL_STORAGE_DIR", ""),
	}
	raw := envutil.String("OBJECT_STORAGE_MODE", "")
	switch mode := ObjectStorageMode(strings.ToLower(raw)); mode {
	case "":
		cfg.Mode = ObjectStorageModeGCS
		if cfg.EmulatorHost != "" {
			cfg.Mode = ObjectStorageModeGCSEmulator
			cfg.Fallback = true
		}
	case ObjectStorageModeGCS, ObjectStorageModeGCSEmulator, ObjectStorageModeLocal:
		cfg.Mode = mode
	default:
		return cfg, &ObjectStorageConfigError{Field: "OBJECT_STORAGE_MODE", Value: raw}
	}
	return cfg, ValidateObjectStorageConfig(cfg)
}

func ValidateObjectStorageConfig(cfg ObjectStorageConfig) error {
	switch cfg.Mode {
	case ObjectStorageModeGCS:
		return nil
	case ObjectStorageModeLocal:
		if strings.TrimSpace(cfg.LocalDir) == "" {
			return &ObjectStorageConfigError{Field: "LOCAL_STORAGE_DIR"}
		}
		return nil
	case ObjectStorageModeGCSEmulator:
		if cfg.EmulatorHost == "" {
			return &ObjectStorageConfigError{Field: "STORAGE_EMULATOR_HOST"}
		}
		u, err := url.Parse(cfg.EmulatorHost)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &ObjectStorageConfigError{Field: "STORAGE_EMULATOR_HOST", Value: cfg.EmulatorHost, Cause: err}
		}
		return nil
	default:
		return &ObjectStorageConfigError{Field: "OBJECT_STORAGE_MODE", Value: string(cfg.Mode)}
	}
}
