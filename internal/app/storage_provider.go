package app

import (
	"errors"
	"fmt"

	"github.com/yungbote/carousel-backend/internal/modules/carousel/steps"
	"github.com/yungbote/carousel-backend/internal/platform/gcp"
	"github.com/yungbote/carousel-backend/internal/platform/localstore"
	"github.com/yungbote/carousel-backend/internal/platform/logger"
)

var (
	loadObjectStorageConfig = gcp.ResolveObjectStorageConfigFromEnv
	newBucketService        = gcp.NewBucketService
	newLocalStore           = func(log *logger.Logger, root string) (steps.ObjectStore, error) {
		return localstore.New(log, root)
	}
)

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidMode         StorageProviderBootstrapErrorCode = "invalid_mode"
	StorageProviderBootstrapErrorMissingEmulatorHost StorageProviderBootstrapErrorCode = "missing_emulator_host"
	StorageProviderBootstrapErrorInvalidEmulatorHost StorageProviderBootstrapErrorCode = "invalid_emulator_host"
	StorageProviderBootstrapErrorMissingLocalDir     StorageProviderBootstrapErrorCode = "missing_local_dir"
	StorageProviderBootstrapErrorConnectFailed       StorageProviderBootstrapErrorCode = "connect_failed"
)

type StorageProviderBootstrapError struct {
	Code         StorageProviderBootstrapErrorCode
	Mode         string
	EmulatorHost string
	Cause        error
}

func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "object storage bootstrap failed"
	}
	return fmt.Sprintf(
		"object storage bootstrap failed (code=%s mode=%q emulator_host=%q): %v",
		e.Code,
		e.Mode,
		e.EmulatorHost,
		e.Cause,
	)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveObjectStore picks the carousel object store from OBJECT_STORAGE_MODE:
// the GCS bucket (real or emulator) or a local directory.
func resolveObjectStore(log *logger.Logger) (steps.ObjectStore, error) {
	storageCfg, err := loadObjectStorageConfig()
	if err != nil {
		classified := classifyStorageProviderBootstrapError(storageCfg, err)
		log.Error("Object storage provider selection failed",
			"mode", storageCfg.Mode,
			"emulator_host", storageCfg.EmulatorHost,
			"error_code", storageProviderBootstrapErrorCode(classified),
			"error", classified,
		)
		return nil, classified
	}

	log.Info("Selecting object storage provider",
		"mode", storageCfg.Mode,
		"mode_source", storageCfg.ModeSource(),
		"emulator_host", storageCfg.EmulatorHost,
		"local_dir", storageCfg.LocalDir,
	)

	var store steps.ObjectStore
	if storageCfg.IsLocalMode() {
		store, err = newLocalStore(log, storageCfg.LocalDir)
	} else {
		store, err = newBucketService(log, storageCfg)
	}
	if err != nil {
		classified := classifyStorageProviderBootstrapError(storageCfg, err)
		log.Error("Object storage provider bootstrap failed",
			"mode", storageCfg.Mode,
			"mode_source", storageCfg.ModeSource(),
			"emulator_host", storageCfg.EmulatorHost,
			"error_code", storageProviderBootstrapErrorCode(classified),
			"error", classified,
		)
		return nil, classified
	}
	return store, nil
}

func classifyStorageProviderBootstrapError(storageCfg gcp.ObjectStorageConfig, err error) error {
	code := StorageProviderBootstrapErrorConnectFailed
	var cfgErr *gcp.ObjectStorageConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Field {
		case "OBJECT_STORAGE_MODE":
			code = StorageProviderBootstrapErrorInvalidMode
		case "STORAGE_EMULATOR_HOST":
			code = StorageProviderBootstrapErrorInvalidEmulatorHost
			if cfgErr.Value == "" {
				code = StorageProviderBootstrapErrorMissingEmulatorHost
			}
		case "LOCAL_STORAGE_DIR":
			code = StorageProviderBootstrapErrorMissingLocalDir
		}
	}
	mode := string(storageCfg.Mode)
	if code == StorageProviderBootstrapErrorInvalidMode && cfgErr.Value != "" {
		mode = cfgErr.Value
	}
	return &StorageProviderBootstrapError{
		Code:         code,
		Mode:         mode,
		EmulatorHost: storageCfg.EmulatorHost,
		Cause:        err,
	}
}

func storageProviderBootstrapErrorCode(err error) StorageProviderBootstrapErrorCode {
	var bootstrapErr *StorageProviderBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return StorageProviderBootstrapErrorConnectFailed
}
