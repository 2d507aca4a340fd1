package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/schoolstack/learnnow-backend/internal/platform/envutil"
	"github.com/schoolstack/learnnow-backend/internal/platform/logger"
	"github.com/schoolstack/learnnow-backend/internal/types"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	host := envutil.String("POSTGRES_HOST", "localhost")
	port := envutil.String("POSTGRES_PORT", "5432")
	user := envutil.String("POSTGRES_USER", "postgres")
	password := envutil.String("POSTGRES_PASSWORD", "")
	name := envutil.String("POSTGRES_NAME", "learnnow")
	sslMode := envutil.String("POSTGRES_SSLMODE", "disable")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, password, host, port, name, sslMode)

	serviceLog.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := s.db.AutoMigrate(
		&types.Grade{},
		&types.Subject{},
		&types.Tag{},
		&types.Resource{},
		&types.ResourceTag{},
		&types.ResourceVote{},
		&types.LearningModule{},
		&types.LearningModuleTag{},
		&types.LearningModuleVote{},
		&types.ResourceModuleMapping{},
		&types.UserLearningResource{},
		&types.UserLearningModule{},
	); err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	// Case-insensitive uniqueness is validated in the services, but the
	// check-then-insert sequence still races under concurrent creates.
	// These partial indexes make the store the final arbiter.
	s.log.Info("Creating case-insensitive unique indexes...")
	for _, stmt := range []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_grade_name_ci ON grade (lower(name)) WHERE deleted_at IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_subject_name_ci ON subject (lower(name)) WHERE deleted_at IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_tag_name_ci ON tag (lower(name)) WHERE deleted_at IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_resource_title_ci ON resource (lower(title)) WHERE deleted_at IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_learning_module_title_ci ON learning_module (lower(title)) WHERE deleted_at IS NULL`,
	} {
		if err := s.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create unique index: %w", err)
		}
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
