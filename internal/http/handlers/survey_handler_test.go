package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/rider-feedback/internal/domain"
	"github.com/tbourn/rider-feedback/internal/services"
	"github.com/tbourn/rider-feedback/internal/survey"
)

func TestSelectVehicle(t *testing.T) {
	a := newApp(t)

	cases := []struct {
		name     string
		path     string
		status   int
		location string
	}{
		{"explicit transit", "/t/acme/survey?transit_number=A+12", http.StatusFound, "/t/acme/survey/A%2012"},
		{"single vehicle", "/t/solo/survey", http.StatusFound, "/t/solo/survey/S1"},
		{"no vehicles", "/t/empty/survey", http.StatusNotFound, ""},
		{"unknown tenant", "/t/ghost/survey", http.StatusNotFound, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := a.get(tc.path)
			if w.Code != tc.status {
				t.Fatalf("status = %d; want %d (%s)", w.Code, tc.status, w.Body.String())
			}
			if got := w.Header().Get("Location"); got != tc.location {
				t.Fatalf("Location = %q; want %q", got, tc.location)
			}
		})
	}

	w := a.get("/t/acme/survey")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var resp VehicleSelectionResponse
	decode(t, w.Body, &resp)
	if resp.Tenant != "acme" || len(resp.Vehicles) != 2 {
		t.Fatalf("unexpected list: %+v", resp)
	}
	if resp.Vehicles[0].TransitNumber != "101" || resp.Vehicles[0].Route != "Ruta Centro" || resp.Vehicles[0].SurveyURL != "/t/acme/survey/101" {
		t.Fatalf("unexpected first vehicle: %+v", resp.Vehicles[0])
	}
}

func TestSurveyForm(t *testing.T) {
	a := newApp(t)
	q := a.question("How was the ride?", domain.KindRating)
	a.reason("Rude driver")

	w := a.get("/t/acme/survey/101")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	var f services.SurveyForm
	decode(t, w.Body, &f)
	if f.TransitNumber != "101" || f.Route != "Ruta Centro" || len(f.Fields) != 1 || f.Fields[0].Key != survey.FieldKey(q.ID) {
		t.Fatalf("unexpected form: %+v", f)
	}
	if len(f.Complaint) != 2 || len(f.Complaint[0].Options) != 1 {
		t.Fatalf("unexpected complaint section: %+v", f.Complaint)
	}

	if w := a.get("/t/acme/survey/nope"); w.Code != http.StatusNotFound || errorCode(t, w) != ErrCodeNotFound {
		t.Fatalf("unknown vehicle = %d %s", w.Code, w.Body.String())
	}
}

func TestSubmitSurvey_ValidationThenSuccessThenThrottle(t *testing.T) {
	a := newApp(t)
	q := a.question("How was the ride?", domain.KindRating)
	rude := a.reason("Rude driver")
	key := survey.FieldKey(q.ID)

	// invalid: out of range rating
	w := a.postForm("/t/acme/survey/101", url.Values{key: {"9"}})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid status = %d (%s)", w.Code, w.Body.String())
	}
	var er ErrorResponse
	decode(t, w.Body, &er)
	if er.Code != ErrCodeValidationFailed || er.Fields[key] == "" || er.Form == nil {
		t.Fatalf("unexpected 422 body: %+v", er)
	}
	if got := er.Form.Fields[0].Value; len(got) != 1 || got[0] != "9" {
		t.Fatalf("posted value not echoed: %v", got)
	}

	// valid, with complaint
	w = a.postForm("/t/acme/survey/101", url.Values{
		key:                       {"4"},
		survey.ComplaintReasonKey: {rude.ID},
		survey.ComplaintTextKey:   {"kept the door closed"},
	})
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/t/acme/thank-you" {
		t.Fatalf("success = %d %q", w.Code, w.Header().Get("Location"))
	}
	flash := findCookie(w, flashCookie)
	if flash == nil || flash.Value == "" || flash.Path != "/t/acme" || !flash.HttpOnly {
		t.Fatalf("flash cookie missing or wrong: %+v", flash)
	}

	// same client, same vehicle: throttled
	w = a.postForm("/t/acme/survey/101", url.Values{key: {"5"}})
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") == "" || errorCode(t, w) != ErrCodeThrottled {
		t.Fatalf("throttle = %d %q %s", w.Code, w.Header().Get("Retry-After"), w.Body.String())
	}

	// a different vehicle has its own quota
	if w := a.postForm("/t/acme/survey/900", url.Values{key: {"5"}}); w.Code != http.StatusSeeOther {
		t.Fatalf("other vehicle = %d (%s)", w.Code, w.Body.String())
	}

	// thank-you consumes the flash
	req := httptest.NewRequest(http.MethodGet, "/t/acme/thank-you", nil)
	req.AddCookie(flash)
	w = a.do(req)
	if w.Code != http.StatusOK {
		t.Fatalf("thank-you = %d", w.Code)
	}
	var ty ThankYouResponse
	decode(t, w.Body, &ty)
	if !ty.Submitted || !ty.HasComplaint || ty.TodayCount == nil || *ty.TodayCount != 2 {
		t.Fatalf("unexpected thank-you: %+v", ty)
	}
	if c := findCookie(w, flashCookie); c == nil || c.MaxAge >= 0 {
		t.Fatalf("flash not cleared: %+v", c)
	}

	// without the flash nothing is confirmed
	w = a.get("/t/acme/thank-you")
	ty = ThankYouResponse{}
	decode(t, w.Body, &ty)
	if ty.Submitted || ty.TodayCount != nil {
		t.Fatalf("thank-you without flash: %+v", ty)
	}
}

func TestThankYou_RejectsForgedFlash(t *testing.T) {
	a := newApp(t)
	q := a.question("How was the ride?", domain.KindRating)
	w := a.postForm("/t/acme/survey/101", url.Values{survey.FieldKey(q.ID): {"5"}})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("submit = %d (%s)", w.Code, w.Body.String())
	}
	genuine := findCookie(w, flashCookie)
	if genuine == nil {
		t.Fatalf("no flash cookie")
	}
	value, err := url.QueryUnescape(genuine.Value) // gin escapes cookie values
	if err != nil {
		t.Fatalf("unescape: %v", err)
	}
	payload, valid := verifyFlash(a.h.flashKey, "acme", value)
	if !valid || payload != "submission_success=1" {
		t.Fatalf("genuine flash did not verify: %q", value)
	}
	tag := value[strings.LastIndexByte(value, '.'):]

	cases := []struct {
		name  string
		value string
	}{
		{"unsigned", "submission_success=1"},
		{"payload swapped", "has_complaint=1&submission_success=1" + tag},
		{"other key", signFlash(newFlashKey(), "acme", "submission_success=1")},
		{"other tenant", signFlash(a.h.flashKey, "solo", "submission_success=1")},
		{"garbage", "...."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/t/acme/thank-you", nil)
			req.AddCookie(&http.Cookie{Name: flashCookie, Value: tc.value})
			w := a.do(req)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			var ty ThankYouResponse
			decode(t, w.Body, &ty)
			if ty.Submitted || ty.HasComplaint || ty.TodayCount != nil {
				t.Fatalf("forged flash accepted: %+v", ty)
			}
			if c := findCookie(w, flashCookie); c == nil || c.MaxAge >= 0 {
				t.Fatalf("forged flash not cleared: %+v", c)
			}
		})
	}
}

func TestFlashSignature(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	v := signFlash(key, "acme", "a=1&b=2")
	if got, ok := verifyFlash(key, "acme", v); !ok || got != "a=1&b=2" {
		t.Fatalf("round trip = %q %v", got, ok)
	}
	if _, ok := verifyFlash(key, "acme", v+"x"); ok {
		t.Fatalf("extended tag verified")
	}
	if _, ok := verifyFlash(key, "acme", ""); ok {
		t.Fatalf("empty value verified")
	}
	if h := New(Deps{FlashKey: key}); string(h.flashKey) != string(key) {
		t.Fatalf("configured key ignored")
	}
	if h := New(Deps{}); len(h.flashKey) != flashKeySize {
		t.Fatalf("random key size = %d", len(h.flashKey))
	}
}

func TestSubmitSurvey_UnknownVehicle(t *testing.T) {
	a := newApp(t)
	if w := a.postForm("/t/acme/survey/nope", url.Values{}); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

type stubSurvey struct {
	err error
}

func (s stubSurvey) Form(context.Context, *domain.Tenant, string, url.Values) (*services.SurveyForm, error) {
	return nil, s.err
}

func (s stubSurvey) Submit(context.Context, *domain.Tenant, string, string, url.Values) (*services.Receipt, error) {
	return nil, s.err
}

func (s stubSurvey) TodayCount(context.Context, string) (int64, error) { return 0, s.err }

type stubTenants struct{}

func (stubTenants) Resolve(_ context.Context, slug string) (*domain.Tenant, error) {
	return &domain.Tenant{ID: "t1", Slug: slug, Active: true}, nil
}

func TestSubmitSurvey_CatalogChanged(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := mount(New(Deps{Survey: stubSurvey{err: services.ErrCatalogChanged}}), stubTenants{})

	req := httptest.NewRequest(http.MethodPost, "/t/acme/survey/101", strings.NewReader("question_x=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict || errorCode(t, w) != ErrCodeCatalogChanged {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
