package masterdata

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"mobiq/internal/catalog"
)

// The catalog cache is what the router hands in as the invalidator.
var _ invalidator = (*catalog.Cache)(nil)

func TestImportCatalogRequiresLang(t *testing.T) {
	svc := NewService(nil, nil)

	_, err := svc.ImportCatalog(context.Background(), 1, "", bytes.NewReader(nil))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}
