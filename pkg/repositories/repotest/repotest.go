// Package repotest provides in-memory implementations of the repository
// interfaces for use in tests.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aquaticgg/krepo/pkg/models"
	"github.com/aquaticgg/krepo/pkg/repositories"
)

// Store holds every in-memory table and hands out the per-table repositories.
type Store struct {
	mu       sync.Mutex
	nextID   uint
	accounts map[string]*models.Account
	tokens   map[uint]*models.DeployToken
	revoked  map[string]*models.RevokedToken
	repos    map[string]*models.Repository
}

func New() *Store {
	return &Store{
		accounts: map[string]*models.Account{},
		tokens:   map[uint]*models.DeployToken{},
		revoked:  map[string]*models.RevokedToken{},
		repos:    map[string]*models.Repository{},
	}
}

func (s *Store) Accounts() *Accounts         { return &Accounts{s} }
func (s *Store) DeployTokens() *DeployTokens { return &DeployTokens{s} }
func (s *Store) Revoked() *Revoked           { return &Revoked{s} }
func (s *Store) Repos() *Repos               { return &Repos{s} }

func (s *Store) id() uint {
	s.nextID++
	return s.nextID
}

type Accounts struct{ s *Store }

var _ repositories.IAccountRepository = (*Accounts)(nil)

func (a *Accounts) GetByUsername(_ context.Context, username string) (*models.Account, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	acct, ok := a.s.accounts[username]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *acct
	cp.Roles = append([]string(nil), acct.Roles...)
	return &cp, nil
}

func (a *Accounts) Create(_ context.Context, account *models.Account) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	if _, ok := a.s.accounts[account.Username]; ok {
		return repositories.ErrDuplicate
	}
	account.ID = a.s.id()
	account.CreatedAt = time.Now()
	cp := *account
	a.s.accounts[account.Username] = &cp
	return nil
}

func (a *Accounts) UpdateRoles(_ context.Context, username string, roles []string) (*models.Account, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	acct, ok := a.s.accounts[username]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	acct.Roles = append([]string(nil), roles...)
	cp := *acct
	return &cp, nil
}

func (a *Accounts) Delete(_ context.Context, username string) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	acct, ok := a.s.accounts[username]
	if !ok {
		return repositories.ErrNotFound
	}
	for id, t := range a.s.tokens {
		if t.AccountID == acct.ID {
			delete(a.s.tokens, id)
		}
	}
	delete(a.s.accounts, username)
	return nil
}

func (a *Accounts) List(_ context.Context) ([]models.Account, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	out := make([]models.Account, 0, len(a.s.accounts))
	for _, acct := range a.s.accounts {
		out = append(out, *acct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (a *Accounts) Count(_ context.Context) (int64, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	return int64(len(a.s.accounts)), nil
}

type DeployTokens struct{ s *Store }

var _ repositories.IDeployTokenRepository = (*DeployTokens)(nil)

func (d *DeployTokens) ListByOwner(_ context.Context, accountID uint) ([]models.DeployToken, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	var out []models.DeployToken
	for _, t := range d.s.tokens {
		if t.AccountID == accountID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *DeployTokens) GetByOwnerAndName(_ context.Context, accountID uint, name string) (*models.DeployToken, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	for _, t := range d.s.tokens {
		if t.AccountID == accountID && t.Name == name {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (d *DeployTokens) Create(_ context.Context, token *models.DeployToken) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	for _, t := range d.s.tokens {
		if t.AccountID == token.AccountID && t.Name == token.Name {
			return repositories.ErrDuplicate
		}
	}
	token.ID = d.s.id()
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	cp := *token
	d.s.tokens[token.ID] = &cp
	return nil
}

func (d *DeployTokens) UpdateHash(_ context.Context, id uint, tokenHash string) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	t, ok := d.s.tokens[id]
	if !ok {
		return repositories.ErrNotFound
	}
	t.TokenHash = tokenHash
	return nil
}

func (d *DeployTokens) DeleteOwned(_ context.Context, accountID uint, id uint) (bool, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	t, ok := d.s.tokens[id]
	if !ok || t.AccountID != accountID {
		return false, nil
	}
	delete(d.s.tokens, id)
	return true, nil
}

type Revoked struct{ s *Store }

var _ repositories.IRevokedTokenRepository = (*Revoked)(nil)

func (r *Revoked) Add(_ context.Context, token *models.RevokedToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.revoked[token.TokenHash]; !ok {
		cp := *token
		r.s.revoked[token.TokenHash] = &cp
	}
	return nil
}

func (r *Revoked) Exists(_ context.Context, tokenHash string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.revoked[tokenHash]
	return ok, nil
}

func (r *Revoked) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for h, t := range r.s.revoked {
		if t.ExpiresAt.Before(now) {
			delete(r.s.revoked, h)
			n++
		}
	}
	return n, nil
}

// Len reports how many revocations are stored.
func (r *Revoked) Len() int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.revoked)
}

type Repos struct{ s *Store }

var _ repositories.IRepoRepository = (*Repos)(nil)

func (r *Repos) Get(_ context.Context, name string) (*models.Repository, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	repo, ok := r.s.repos[name]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *repo
	return &cp, nil
}

func (r *Repos) EnsureExists(_ context.Context, name string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.repos[name]; ok {
		return false, nil
	}
	r.s.repos[name] = &models.Repository{Name: name, Visibility: models.VisibilityPublic, CreatedAt: time.Now()}
	return true, nil
}

func (r *Repos) SetVisibility(_ context.Context, name string, visibility models.Visibility) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	repo, ok := r.s.repos[name]
	if !ok {
		return repositories.ErrNotFound
	}
	repo.Visibility = visibility
	return nil
}

func (r *Repos) List(_ context.Context) ([]models.Repository, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Repository, 0, len(r.s.repos))
	for _, repo := range r.s.repos {
		out = append(out, *repo)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Put stores a repository record directly, bypassing EnsureExists.
func (r *Repos) Put(name string, visibility models.Visibility) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.repos[name] = &models.Repository{Name: name, Visibility: visibility, CreatedAt: time.Now()}
}
