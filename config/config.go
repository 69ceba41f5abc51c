package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aquaticgg/krepo/config/configkey"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var loadConfigMutex sync.Mutex
var configLoaded bool

var DefaultValues = map[string]interface{}{
	configkey.LogLevel:      "info",
	configkey.DebugMode:     false,
	configkey.RequestLogger: true,
	configkey.HTTPPort:      8080,

	configkey.DatabaseUsername: "krepo",
	configkey.DatabaseDatabase: "krepo",
	configkey.DatabaseHost:     "localhost",
	configkey.DatabasePort:     5432,
	configkey.DatabaseSSLMode:  "disable",
	configkey.DatabaseTimezone: "UTC",
	configkey.DatabasePassword: "password",

	configkey.StorageType:   "fs",
	configkey.StorageFSPath: "./storage",
	configkey.S3Region:      "us-east-1",
	configkey.S3Secure:      true,
	configkey.S3PathStyle:   false,

	configkey.JWTExpiration:           "1h",
	configkey.BcryptCost:              10,
	configkey.RevocationPurgeSchedule: "@every 10m",

	configkey.BootstrapAdminUsername: "admin",

	configkey.MetricsEnabled: true,
}

func LoadConfig() {
	loadConfigMutex.Lock()
	defer loadConfigMutex.Unlock()
	if !configLoaded {
		configLoaded = true

		explicitConfigFile := os.Getenv("CONFIG_FILE")
		if explicitConfigFile != "" {
			fmt.Printf("CONFIG_FILE: %s\n", explicitConfigFile)
			viper.SetConfigFile(explicitConfigFile)
		} else {
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
			viper.AddConfigPath("/etc/krepo")

			otherPath := os.Getenv("CONFIG_FILE_PATH")
			if otherPath != "" {
				viper.AddConfigPath(otherPath)
			}
		}

		// set defaults first
		for key, val := range DefaultValues {
			viper.SetDefault(key, val)
		}

		viper.SetEnvPrefix("krepo")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		err := viper.ReadInConfig()
		if err != nil {
			logrus.Warn("Config file not found, using defaults")
		}
	}
}

// ConfigureLogging applies log.level to the package level logrus logger.
func ConfigureLogging() {
	l, err := logrus.ParseLevel(viper.GetString(configkey.LogLevel))
	if err != nil {
		logrus.Error(err)
		return
	}
	logrus.SetLevel(l)
}

func MustGetString(key string) string {
	val := viper.GetString(key)
	if len(val) == 0 {
		panic(errors.New("failed to get " + key))
	}

	return val
}

func MustGetInt32(key string) int32 {
	if viper.IsSet(key) {
		val := viper.GetInt32(key)
		return val
	}
	panic("key not found: " + key)
}

func MustGetDuration(key string) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil || d <= 0 {
		panic(fmt.Errorf("invalid duration for %s: %q", key, viper.GetString(key)))
	}

	return d
}
