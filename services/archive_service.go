package services

import (
	"context"
	"time"

	"chat-server/repositories"
	"chat-server/runtime/workers"
)

type IArchiveService interface {
	RunSweep(ctx context.Context) (workers.Report, error)
	ListArchived() ([]repositories.DiskMessage, error)
}

// ArchiveService exposes the administrative surface of the archival
// scheduler: an on-demand sweep trigger and read access to the cold store.
// The trigger shares the worker's single-flight guard, so an administrative
// run never overlaps a timer run.
type ArchiveService struct {
	archiver *workers.ArchiveWorker
	archive  repositories.IArchiveRepository
}

func NewArchiveService(archiver *workers.ArchiveWorker, archive repositories.IArchiveRepository) *ArchiveService {
	return &ArchiveService{archiver: archiver, archive: archive}
}

func (s *ArchiveService) RunSweep(ctx context.Context) (workers.Report, error) {
	return s.archiver.Sweep(ctx, time.Now().UTC())
}

func (s *ArchiveService) ListArchived() ([]repositories.DiskMessage, error) {
	return s.archive.GetAll()
}
