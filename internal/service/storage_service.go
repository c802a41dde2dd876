package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mariosrafail/english4sp-sub000/internal/config"
	"github.com/mariosrafail/english4sp-sub000/internal/model"
	"github.com/mariosrafail/english4sp-sub000/internal/repository"
	"github.com/rs/zerolog"
)

// Sentinel errors for snapshot uploads.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)

// Allowed snapshot MIME types.
var snapshotMIMETypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// StorageService handles the on-disk artifacts of a session: webcam
// snapshots and the listening audio files. Paths stored in Postgres are
// relative to the storage root.
type StorageService struct {
	snapshotRepo *repository.SnapshotRepository
	cfg          *config.Config
	log          zerolog.Logger
}

// NewStorageService creates a new StorageService.
func NewStorageService(snapshotRepo *repository.SnapshotRepository, cfg *config.Config, log zerolog.Logger) *StorageService {
	return &StorageService{
		snapshotRepo: snapshotRepo,
		cfg:          cfg,
		log:          log.With().Str("component", "storage").Logger(),
	}
}

// SaveSnapshot validates, writes, and records one webcam capture. The
// per-session cap is enforced in the repository under the session row lock;
// a rejected insert removes the just-written file.
func (s *StorageService) SaveSnapshot(ctx context.Context, sessionID uuid.UUID, file multipart.File, header *multipart.FileHeader) (*model.Snapshot, error) {
	contentType := header.Header.Get("Content-Type")
	ext, ok := snapshotMIMETypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, contentType)
	}
	if header.Size > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, header.Size, s.cfg.MaxUploadBytes)
	}

	dir := filepath.Join(s.cfg.StorageDir, "snapshots", sessionID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}

	relPath := filepath.Join("snapshots", sessionID.String(), uuid.New().String()+ext)
	destPath := filepath.Join(s.cfg.StorageDir, "snapshots", sessionID.String(), filepath.Base(relPath))

	dst, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(destPath)
		return nil, fmt.Errorf("write file: %w", err)
	}
	dst.Close()

	snap := &model.Snapshot{
		SessionID: sessionID,
		Path:      relPath,
		MimeType:  contentType,
		SizeBytes: header.Size,
	}
	if err := s.snapshotRepo.CreateCapped(ctx, snap, s.cfg.SnapshotMaxPerSession); err != nil {
		os.Remove(destPath)
		return nil, err
	}
	return snap, nil
}

// Snapshots lists a session's stored captures.
func (s *StorageService) Snapshots(ctx context.Context, sessionID uuid.UUID) ([]model.Snapshot, error) {
	return s.snapshotRepo.ListBySession(ctx, sessionID)
}

// AbsolutePath resolves a stored relative path against the storage root.
func (s *StorageService) AbsolutePath(relPath string) string {
	return filepath.Join(s.cfg.StorageDir, relPath)
}
