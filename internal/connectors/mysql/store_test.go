package mysql

import (
	"strings"
	"testing"

	"go-co2-emissions-dashboard/internal/config"
)

func TestNewStoreRejectsInvalidTable(t *testing.T) {
	_, err := NewStore(config.Config{DataTable: "emissions where 1=1"})
	if err == nil || !strings.Contains(err.Error(), "invalid table name") {
		t.Fatalf("expected invalid table error, got %v", err)
	}
}

func TestCloseNilStore(t *testing.T) {
	var s *Store
	if err := s.Close(); err != nil {
		t.Fatalf("Close on nil store: %v", err)
	}
}
