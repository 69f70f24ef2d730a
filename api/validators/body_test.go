package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/bundlehub-backend/pkg/errors"
)

type contactBody struct {
	Name  string `json:"name" validate:"required,max=10"`
	Phone string `json:"phone" validate:"required,max=20,msisdn"`
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeJSONBodyAcceptsFormattedPhone(t *testing.T) {
	var dest contactBody
	if err := DecodeJSONBody(post(`{"name":"Ama","phone":"024 111-2222"}`), &dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if SanitizePhone(dest.Phone) != "0241112222" {
		t.Fatalf("unexpected phone %q", dest.Phone)
	}
}

func TestDecodeJSONBodyRejects(t *testing.T) {
	cases := map[string]string{
		"bad phone":     `{"name":"Ama","phone":"call me"}`,
		"short phone":   `{"name":"Ama","phone":"0241"}`,
		"missing name":  `{"phone":"0241112222"}`,
		"unknown field": `{"name":"Ama","phone":"0241112222","admin":true}`,
		"empty body":    ``,
		"two objects":   `{"name":"Ama","phone":"0241112222"}{"name":"Kofi"}`,
		"too large":     `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`,
	}
	for name, body := range cases {
		var dest contactBody
		err := DecodeJSONBody(post(body), &dest)
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestDecodeJSONBodyLenientIgnoresExtraFields(t *testing.T) {
	var dest contactBody
	if err := DecodeJSONBodyLenient(post(`{"name":"Ama","phone":"0241112222","deviceId":"x"}`), &dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidationDetailsUseJSONNames(t *testing.T) {
	var dest contactBody
	err := DecodeJSONBody(post(`{"name":"Ama","phone":"nope"}`), &dest)
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok || details["phone"] != "must be a mobile number" {
		t.Fatalf("unexpected details %#v", typed.Details())
	}
}
