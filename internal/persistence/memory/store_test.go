package memory

import (
	"testing"

	"example.com/timetrack/internal/domain"
	"example.com/timetrack/internal/persistence/storetest"
)

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.Store { return NewStore() })
}
