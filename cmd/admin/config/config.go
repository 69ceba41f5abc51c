package config

import "github.com/aquaticgg/krepo/cmd/admin/config/configkey"

var DefaultValues = map[string]interface{}{
	configkey.KrepoAPIURL: "http://localhost:8080",
	configkey.LoginFile:   ".krepo-login",
}
