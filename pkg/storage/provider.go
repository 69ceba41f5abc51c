package storage

import (
	"context"
	"fmt"

	"github.com/aquaticgg/krepo/config/configkey"
	"github.com/spf13/viper"
)

const (
	TypeFileSystem = "fs"
	TypeS3         = "s3"
)

// New builds the provider selected by storage.type.
func New(ctx context.Context) (Provider, error) {
	switch t := viper.GetString(configkey.StorageType); t {
	case TypeFileSystem:
		return NewFileSystem(viper.GetString(configkey.StorageFSPath))
	case TypeS3:
		return NewObjectStore(ctx, ObjectStoreConfigFromViper())
	default:
		return nil, fmt.Errorf("unknown storage type %q", t)
	}
}
