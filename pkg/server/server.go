package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aquaticgg/krepo/config"
	"github.com/aquaticgg/krepo/config/configkey"
	"github.com/aquaticgg/krepo/pkg/artifacts"
	"github.com/aquaticgg/krepo/pkg/auth"
	"github.com/aquaticgg/krepo/pkg/bootstrap"
	"github.com/aquaticgg/krepo/pkg/database"
	"github.com/aquaticgg/krepo/pkg/metrics"
	"github.com/aquaticgg/krepo/pkg/middleware"
	"github.com/aquaticgg/krepo/pkg/repositories"
	"github.com/aquaticgg/krepo/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Options holds everything the server is assembled from. Init fills it from
// configuration; tests build it directly.
type Options struct {
	Accounts     repositories.IAccountRepository
	DeployTokens repositories.IDeployTokenRepository
	Revoked      repositories.IRevokedTokenRepository
	Repos        repositories.IRepoRepository
	Storage      storage.Provider
	JWT          *auth.TokenService
	Hasher       *auth.Hasher

	// Health reports whether the backing stores are reachable. Nil means always healthy.
	Health        func(ctx context.Context) error
	RequestLogger bool
	Metrics       bool
}

type Server struct {
	engine   *gin.Engine
	port     int
	provider storage.Provider
	sweeper  *auth.Sweeper
	health   func(ctx context.Context) error
	metrics  bool

	accounts    *auth.Accounts
	tokens      *auth.DeployTokens
	resolver    *auth.Resolver
	revocations *auth.Revocations
	artifacts   *artifacts.Service
}

func New(opts Options) *Server {
	s := &Server{}
	s.setup(opts)
	return s
}

func (s *Server) setup(opts Options) {
	revocations := auth.NewRevocations(opts.Revoked)

	s.provider = opts.Storage
	s.health = opts.Health
	s.metrics = opts.Metrics
	s.revocations = revocations
	s.accounts = auth.NewAccounts(opts.Accounts, opts.JWT, opts.Hasher, revocations)
	s.tokens = auth.NewDeployTokens(opts.Accounts, opts.DeployTokens, opts.Hasher)
	s.resolver = auth.NewResolver(opts.Accounts, opts.DeployTokens, revocations, opts.JWT, opts.Hasher)
	s.artifacts = artifacts.NewService(opts.Repos, opts.Storage)

	r := gin.New()
	r.Use(gin.Recovery())
	if opts.Metrics {
		metrics.Init()
		r.Use(metrics.Instrument())
	}
	if opts.RequestLogger {
		r.Use(middleware.RequestLogger())
	}
	r.Use(middleware.HeaderDump())

	s.SetupEndpoints(r)
}

// Init assembles the server from configuration: database, storage backend,
// token service, the bootstrap administrator and the revocation sweeper.
func (s *Server) Init(ctx context.Context) error {
	config.LoadConfig()
	config.ConfigureLogging()

	if viper.GetBool(configkey.DebugMode) {
		logrus.Info("Debug mode enabled")
		gin.SetMode(gin.DebugMode)
	} else {
		logrus.Info("Debug mode disabled")
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.CreateDatabase()
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	provider, err := storage.New(ctx)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	jwtService, err := auth.NewTokenServiceFromConfig()
	if err != nil {
		return err
	}

	accountRepo := repositories.NewAccountRepository(db)
	opts := Options{
		Accounts:     accountRepo,
		DeployTokens: repositories.NewDeployTokenRepository(db),
		Revoked:      repositories.NewRevokedTokenRepository(db),
		Repos:        repositories.NewRepoRepository(db),
		Storage:      provider,
		JWT:          jwtService,
		Hasher:       auth.NewHasherFromConfig(),
		Health: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		RequestLogger: viper.GetBool(configkey.RequestLogger),
		Metrics:       viper.GetBool(configkey.MetricsEnabled),
	}
	s.setup(opts)
	s.port = viper.GetInt(configkey.HTTPPort)

	_, err = bootstrap.EnsureAdmin(ctx, accountRepo, s.accounts,
		viper.GetString(configkey.BootstrapAdminUsername), viper.GetString(configkey.BootstrapAdminPassword))
	if err != nil {
		return err
	}

	sweeper, err := auth.NewSweeper(s.revocations, viper.GetString(configkey.RevocationPurgeSchedule))
	if err != nil {
		return err
	}
	s.sweeper = sweeper

	return nil
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run serves until ctx is done, then shuts down gracefully and releases the
// storage backend.
func (s *Server) Run(ctx context.Context) error {
	if s.sweeper != nil {
		s.sweeper.Start()
		defer s.sweeper.Stop()
	}
	defer func() {
		if err := s.provider.Close(); err != nil {
			logrus.Errorf("Failed to close storage: %v", err)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.engine,
		ReadHeaderTimeout: 30 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logrus.Infof("Listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logrus.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
