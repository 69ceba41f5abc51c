package auth

import (
	"errors"

	"github.com/aquaticgg/krepo/config/configkey"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes passwords and deploy token secrets with bcrypt.
type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

func NewHasherFromConfig() *Hasher {
	return NewHasher(viper.GetInt(configkey.BcryptCost))
}

func (h *Hasher) Hash(secret string) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("secret is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify compares secret against a stored hash in constant time.
func (h *Hasher) Verify(hash, secret string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
