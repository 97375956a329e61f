package memory

import (
	"context"
)

// Healthcheck verifies the backend is operational.
//
// There are no external dependencies, so this only reports context
// cancellation and whether the store has been closed.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//
// Returns:
//   - error: nil if healthy, the context error, or a closed-store error
func (s *MemoryDocumentStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkOpen()
}
