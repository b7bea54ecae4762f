// Package callable implements the privileged request/response functions:
// user lookup, role assignment, backup trigger and backup listing. Each
// one runs its caller through the authorization gate first.
package callable

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/fretboard/internal/auth"
	"github.com/lalith-99/fretboard/internal/backup"
	"github.com/lalith-99/fretboard/internal/repository"
	"go.uber.org/zap"
)

// BackupConfig locates backups.
type BackupConfig struct {
	Bucket   string
	Prefix   string
	Database string
}

type Service struct {
	gate     *auth.Gate
	users    repository.UserRepository
	clients  repository.ClientRepository
	exporter backup.Exporter
	lister   backup.Lister
	backups  BackupConfig
	now      func() time.Time
	logger   *zap.Logger
}

func NewService(
	users repository.UserRepository,
	clients repository.ClientRepository,
	exporter backup.Exporter,
	lister backup.Lister,
	backups BackupConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		gate:     auth.NewGate(users),
		users:    users,
		clients:  clients,
		exporter: exporter,
		lister:   lister,
		backups:  backups,
		now:      time.Now,
		logger:   logger,
	}
}

// Names as exposed on POST /v1/callable/:name.
const (
	NameGetUserInfo     = "getUserInfo"
	NameBackupFirestore = "backupFirestore"
	NameListBackups     = "listBackups"
	NameSetClientRole   = "setClientRole"
)

func (s *Service) authorize(ctx context.Context, caller uuid.UUID, allow auth.RoleSet) error {
	_, err := s.gate.Authorize(ctx, caller, allow)
	return err
}
