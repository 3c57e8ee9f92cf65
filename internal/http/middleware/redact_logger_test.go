package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRedactor_String(t *testing.T) {
	rd := newRedactor(RedactOptions{})
	in := "email=a.b+tag@example.com&phone=+1-555-123-4567&id=123e4567-e89b-12d3-a456-426614174000&transit_number=101"
	got := rd.String(in)
	for _, want := range []string{"[REDACTED:email]", "[REDACTED:phone]", "[REDACTED:id]", "transit_number=101"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in %q", want, got)
		}
	}
	if strings.Contains(got, "example.com") || strings.Contains(got, "426614174000") {
		t.Fatalf("pii leaked: %q", got)
	}
	if rd.String("") != "" {
		t.Fatalf("empty input should stay empty")
	}
}

func TestRedactor_Headers(t *testing.T) {
	rd := newRedactor(RedactOptions{MaskHeaders: []string{" X-Api-Key ", ""}})
	h := http.Header{}
	h.Set("Authorization", "Bearer secret")
	h.Set("Cookie", "sid=topsecret")
	h.Set("X-Api-Key", "shhh")
	h.Set("X-Custom", "email a@b.com phone 555-123-4567")

	got := rd.Headers(h)
	for _, k := range []string{"Authorization", "Cookie", "X-Api-Key"} {
		if got[k] != "[REDACTED]" {
			t.Fatalf("%s not masked: %q", k, got[k])
		}
	}
	if got["X-Custom"] != "email [REDACTED:email] phone [REDACTED:phone]" {
		t.Fatalf("X-Custom = %q", got["X-Custom"])
	}
}

func TestLogger_RedactsQueryAndHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID())
	r.Use(Logger(RedactOptions{MaskHeaders: []string{"X-Api-Key"}, LogHeaders: true}))
	r.GET("/t/:tenant/survey", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/t/acme/survey?contact=rider@example.com", nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("X-Api-Key", "shhh")
	req.Header.Set("Referer", "https://example.org/?tel=555-123-4567")
	r.ServeHTTP(httptest.NewRecorder(), req)

	logs := buf.String()
	if strings.Contains(logs, "rider@example.com") || strings.Contains(logs, "555-123-4567") {
		t.Fatalf("pii leaked into logs: %s", logs)
	}
	if !strings.Contains(logs, `"Authorization":"[REDACTED]"`) || !strings.Contains(logs, `"X-Api-Key":"[REDACTED]"`) {
		t.Fatalf("headers not masked: %s", logs)
	}
	if !strings.Contains(logs, `"query":"contact=[REDACTED:email]"`) {
		t.Fatalf("query not redacted: %s", logs)
	}
}

func TestLogger_HeadersOffByDefault(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(Logger(RedactOptions{}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer secret")
	r.ServeHTTP(httptest.NewRecorder(), req)

	if strings.Contains(buf.String(), `"headers"`) {
		t.Fatalf("headers logged without LogHeaders: %s", buf.String())
	}
}
