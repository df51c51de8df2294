package catalog

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubCacheSource struct {
	calls int
	fail  bool
}

func (s *stubCacheSource) ListCategories(ctx context.Context, lang string) ([]Category, error) {
	s.calls++
	if s.fail {
		return nil, ErrUnavailable
	}
	return []Category{{ID: "sofa", Name: "Canapea", LangCode: lang}}, nil
}

func (s *stubCacheSource) ListQuestions(ctx context.Context, categoryID, lang string) ([]Question, error) {
	s.calls++
	return []Question{{ID: "q1", CategoryID: categoryID}}, nil
}

func TestCacheNilClientPassesThrough(t *testing.T) {
	src := &stubCacheSource{}
	c := NewCache(src, nil, time.Minute)

	for i := 0; i < 2; i++ {
		items, err := c.ListCategories(context.Background(), "ro")
		if err != nil {
			t.Fatalf("list categories: %v", err)
		}
		if len(items) != 1 || items[0].ID != "sofa" {
			t.Fatalf("unexpected items %+v", items)
		}
	}
	if src.calls != 2 {
		t.Fatalf("expected passthrough on every call, got %d source calls", src.calls)
	}
}

func TestCacheNilClientPropagatesSourceError(t *testing.T) {
	c := NewCache(&stubCacheSource{fail: true}, nil, time.Minute)

	if _, err := c.ListCategories(context.Background(), "ro"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestCacheInvalidateNilClient(t *testing.T) {
	c := NewCache(&stubCacheSource{}, nil, time.Minute)

	if err := c.Invalidate(context.Background()); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
}
