package observability

import "testing"

func TestNormalizedPath(t *testing.T) {
	got := normalizedPath("/api/v1/questionnaire/sessions/0d9157c4-7b9d-4c9e-9a41-2f14be41f3ce/advance")
	want := "/api/v1/questionnaire/sessions/{id}/advance"
	if got != want {
		t.Fatalf("normalizedPath mismatch got=%s want=%s", got, want)
	}

	got = normalizedPath("/api/v1/users/123")
	want = "/api/v1/users/{id}"
	if got != want {
		t.Fatalf("normalizedPath mismatch got=%s want=%s", got, want)
	}

	got = normalizedPath("/api/v1/catalog/categories")
	if got != "/api/v1/catalog/categories" {
		t.Fatalf("non-id segments must survive, got %s", got)
	}
}

func TestExtractSessionID(t *testing.T) {
	id := "0d9157c4-7b9d-4c9e-9a41-2f14be41f3ce"
	if got := extractSessionID("/api/v1/questionnaire/sessions/" + id + "/answers"); got != id {
		t.Fatalf("expected %s, got %s", id, got)
	}
	if got := extractSessionID("/api/v1/requests/" + id); got != "" {
		t.Fatalf("expected empty for non-session path, got %s", got)
	}
	if got := extractSessionID("/api/v1/questionnaire/sessions/not-a-uuid"); got != "" {
		t.Fatalf("expected empty for malformed id, got %s", got)
	}
}
