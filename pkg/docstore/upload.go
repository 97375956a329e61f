package docstore

import (
	"context"

	"github.com/marmos91/rmshelf/internal/logger"
	"github.com/marmos91/rmshelf/pkg/document"
	"github.com/marmos91/rmshelf/pkg/store/content"
)

// Upload adds files to the collection at targetPath.
//
// Files whose extension is not on the allow-list are dropped silently and
// do not appear in the result. The accepted files are uploaded strictly one
// after another: content first, then the record. A record that cannot be
// created has its content removed again.
//
// Each created document is named after its file without the extension,
// has ByteSize = len(Data) and starts on page 1.
//
// Returns:
//   - BatchResult: One item per accepted file, in input order
//   - error: ErrNotFound if targetPath does not resolve, or ErrBusy
func (s *Store) Upload(ctx context.Context, files []document.UploadFile, targetPath string, opts BatchOptions) (result BatchResult, err error) {
	parentID, err := s.resolve(targetPath)
	if err != nil {
		return BatchResult{}, err
	}

	accepted := document.FilterUploads(files)
	if dropped := len(files) - len(accepted); dropped > 0 {
		logger.Debug("Upload dropped %d files with unsupported extensions", dropped)
	}
	if len(accepted) == 0 {
		return BatchResult{Items: []ItemResult{}}, nil
	}

	done, err := s.begin(ActionUpload)
	if err != nil {
		return BatchResult{}, err
	}
	defer func() { done(result.Err()) }()

	result.Items = make([]ItemResult, len(accepted))
	stopped := false
	for i, f := range accepted {
		if stopped {
			result.Items[i] = ItemResult{Name: f.Name, Outcome: OutcomeSkipped}
			continue
		}

		created, itemErr := s.uploadOne(ctx, f, parentID)
		if itemErr != nil {
			result.Items[i] = ItemResult{Name: f.Name, Outcome: OutcomeError, Err: itemErr}
			stopped = !opts.ContinueOnError
			continue
		}
		result.Items[i] = ItemResult{ID: created.ID, Name: f.Name, Outcome: OutcomeOK, Document: &created}
	}

	ok, failed, skipped := result.Counts()
	s.metrics.RecordBatchItems(string(ActionUpload), ok, failed, skipped)
	logger.Debug("Uploaded batch of %d: %d ok, %d failed, %d skipped", len(accepted), ok, failed, skipped)

	return result, nil
}

func (s *Store) uploadOne(ctx context.Context, f document.UploadFile, parentID string) (document.Document, error) {
	doc := document.NewDocument(document.DisplayName(f.Name), parentID, int64(len(f.Data)), s.now())
	id := content.ContentID(doc.ID)

	if err := s.content.WriteContent(ctx, id, f.Data); err != nil {
		return document.Document{}, s.fail(ActionUpload, "failed to store upload", f.Name, err)
	}

	created, err := s.backend.Create(ctx, doc)
	if err != nil {
		if derr := s.content.Delete(ctx, id); derr != nil {
			logger.Warn("Failed to roll back content of %s: %v", f.Name, derr)
		}
		return document.Document{}, s.fail(ActionUpload, "failed to upload document", f.Name, err)
	}

	s.mu.Lock()
	s.putLocked(created)
	s.rebuildLocked()
	s.mu.Unlock()

	logger.Debug("Uploaded %q as %s (%d bytes)", f.Name, created.ID, len(f.Data))
	return created.Clone(), nil
}
