package admin

import (
	"github.com/aquaticgg/krepo/pkg/auth"
	"github.com/aquaticgg/krepo/pkg/database"
	"github.com/aquaticgg/krepo/pkg/repositories"
)

// services are the account, token and repository operations run directly
// against the database, without a running server.
type services struct {
	accounts *auth.Accounts
	tokens   *auth.DeployTokens
	repos    repositories.IRepoRepository
}

func newServices(accounts repositories.IAccountRepository, tokens repositories.IDeployTokenRepository, repos repositories.IRepoRepository) *services {
	hasher := auth.NewHasherFromConfig()
	// sessions are never issued from the command line, so no token service is needed
	return &services{
		accounts: auth.NewAccounts(accounts, nil, hasher, nil),
		tokens:   auth.NewDeployTokens(accounts, tokens, hasher),
		repos:    repos,
	}
}

var openServices = func() (*services, error) {
	db, err := database.CreateDatabase()
	if err != nil {
		return nil, err
	}

	return newServices(
		repositories.NewAccountRepository(db),
		repositories.NewDeployTokenRepository(db),
		repositories.NewRepoRepository(db),
	), nil
}
