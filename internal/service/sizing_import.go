package service

import (
	"context"
	"errors"
	"io"

	"cable-orchestrator/internal/models"
	"cable-orchestrator/internal/upstream"

	"go.uber.org/zap"
)

// SheetImporter is the sizing-sheet side of the external service.
type SheetImporter interface {
	UploadSizingSheet(ctx context.Context, filename string, body io.Reader) (*models.UploadInfo, error)
	MapSizingSheet(ctx context.Context, token string, mapping models.FieldMapping) ([]map[string]interface{}, error)
}

// SizingImport is the upload-and-map flow for a feeder list. Apply returns
// records ready for Worksheet.ImportRows and closes the session.
type SizingImport struct {
	Wizard
	svc SheetImporter
}

// NewSizingImport returns an import flow with no session.
func NewSizingImport(svc SheetImporter, store MappingStore, logger *zap.Logger) *SizingImport {
	return &SizingImport{
		Wizard: newWizard(models.SchemaSizing, SizingMappingKey, store, logger),
		svc:    svc,
	}
}

// Upload sends the sheet to the external parser and starts a new session.
func (s *SizingImport) Upload(ctx context.Context, filename string, body io.Reader) (*CatalogSession, error) {
	info, err := s.svc.UploadSizingSheet(ctx, filename, body)
	if err != nil {
		if errors.Is(err, upstream.ErrRejected) {
			return nil, &UploadError{Filename: filename, Err: err}
		}
		return nil, err
	}
	if info.Token == "" {
		return nil, &UploadError{Filename: filename, Err: errors.New("no token in upload reply")}
	}
	return s.begin(ctx, filename, info), nil
}

// Apply maps the uploaded sheet with the working mapping and returns the
// resulting records. On success the mapping is stored for the next upload
// and the session ends.
func (s *SizingImport) Apply(ctx context.Context) ([]map[string]interface{}, error) {
	token, mapping, err := s.current()
	if err != nil {
		return nil, err
	}
	records, err := s.svc.MapSizingSheet(ctx, token, mapping)
	if err != nil {
		return nil, s.classify(token, err)
	}
	s.persist(ctx, mapping)
	s.expire(token)

	s.logger.Info("sizing sheet mapped", zap.Int("records", len(records)))
	return records, nil
}
