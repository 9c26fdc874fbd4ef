package columnar

import (
	"bytes"
	"context"
)

// Stats implements blockdb.Statser. Statistics are diagnostic only:
// when disabled at open time, or when the engine fails to produce a
// report, the failure is logged and ok is false.
func (s *Store) Stats(ctx context.Context) (string, bool) {
	if !s.stats {
		return "", false
	}

	var buf bytes.Buffer
	if err := s.db.Stats(ctx, &buf); err != nil {
		s.logger.Printf("unable to write database statistics: %v", err)
		return "", false
	}
	return buf.String(), true
}
