package callable

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/fretboard/internal/apperr"
	"github.com/lalith-99/fretboard/internal/auth"
	"github.com/lalith-99/fretboard/internal/backup"
	"go.uber.org/zap"
)

type BackupResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	OperationName string `json:"operationName"`
	OutputURI     string `json:"outputUri"`
	Timestamp     string `json:"timestamp"`
}

// TriggerBackup starts one export into today's folder and returns
// without waiting for it. Calling it twice on one day starts two exports
// into the same folder.
func (s *Service) TriggerBackup(ctx context.Context, caller uuid.UUID) (*BackupResponse, error) {
	if err := s.authorize(ctx, caller, auth.BackupRoles); err != nil {
		return nil, err
	}
	return s.StartBackup(ctx, caller.String())
}

// StartBackup is TriggerBackup without the gate. actor is only logged.
func (s *Service) StartBackup(ctx context.Context, actor string) (*BackupResponse, error) {
	now := s.now().UTC()
	dest := backup.NewDestination(s.backups.Bucket, s.backups.Prefix, s.backups.Database, now)

	op, err := s.exporter.Export(ctx, dest.Object)
	if err != nil {
		s.logger.Error("backup export failed",
			zap.String("actor", actor),
			zap.String("uri", dest.Object),
			zap.Error(err),
		)
		return nil, apperr.Internal("backup failed", err)
	}

	s.logger.Info("backup started",
		zap.String("actor", actor),
		zap.String("operation", op),
		zap.String("uri", dest.Object),
	)
	return &BackupResponse{
		Success:       true,
		Message:       "Backup started",
		OperationName: op,
		OutputURI:     dest.Object,
		Timestamp:     now.Format(time.RFC3339),
	}, nil
}

type ListBackupsResponse struct {
	Success bool           `json:"success"`
	Backups []backup.Entry `json:"backups"`
	Bucket  string         `json:"bucket"`
}

// ListBackups returns one level of backup folders, newest first.
func (s *Service) ListBackups(ctx context.Context, caller uuid.UUID) (*ListBackupsResponse, error) {
	if err := s.authorize(ctx, caller, auth.BackupRoles); err != nil {
		return nil, err
	}
	return s.Backups(ctx)
}

// Backups is ListBackups without the gate.
func (s *Service) Backups(ctx context.Context) (*ListBackupsResponse, error) {
	folders, err := s.lister.ListFolders(ctx, s.backups.Bucket, s.backups.Prefix)
	if err != nil {
		s.logger.Error("list backups failed", zap.String("bucket", s.backups.Bucket), zap.Error(err))
		return nil, apperr.Internal("failed to list backups", err)
	}

	return &ListBackupsResponse{
		Success: true,
		Backups: backup.Entries(s.backups.Bucket, s.backups.Prefix, folders),
		Bucket:  s.backups.Bucket,
	}, nil
}
