package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/talksyhq/talksy/internal/config"
	"github.com/talksyhq/talksy/internal/db"
	"github.com/talksyhq/talksy/internal/repository"
	"github.com/talksyhq/talksy/internal/service"
	"github.com/talksyhq/talksy/internal/storage"
)

// App holds the explicitly constructed dependency graph. Everything is
// passed down from here; there are no package-level singletons.
type App struct {
	Cfg          *config.Config
	DB           *sqlx.DB
	AuthService  *service.AuthService
	UserService  *service.UserService
	EmailService *service.EmailService
}

func New(cfg *config.Config) (*App, error) {
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	userRepository := repository.NewUserRepository(database)

	fileStorage, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.ClientOrigin,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	authService := service.NewAuthService(
		userRepository,
		emailService,
		cfg.JWTSecret,
		cfg.IsProduction(),
		cfg.SessionExpiry,
		cfg.VerifyTokenExpiry,
	)
	userService := service.NewUserService(userRepository, fileStorage)

	return &App{
		Cfg:          cfg,
		DB:           database,
		AuthService:  authService,
		UserService:  userService,
		EmailService: emailService,
	}, nil
}

func (a *App) Close() error {
	return db.Close(a.DB)
}
