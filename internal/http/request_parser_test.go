package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"timesplit/internal/core"
)

func parserFor(body string) *RequestBodyParser {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	return NewRequestBodyParser(httptest.NewRecorder(), req)
}

func TestJSONKind(t *testing.T) {
	tests := map[string]string{
		`{"a":1}`: "object",
		`[1]`:     "array",
		`"s"`:     "string",
		`true`:    "boolean",
		`false`:   "boolean",
		`null`:    "null",
		`-1.5e3`:  "number",
		`  7 `:    "number",
	}
	for raw, want := range tests {
		if got := jsonKind([]byte(raw)); got != want {
			t.Errorf("jsonKind(%s) = %q, want %q", raw, got, want)
		}
	}
}

func TestRequestBodyParser_NonNegativeInt(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    *int
		wantMsg string
	}{
		{"integer", `{"n":42}`, intPtr(42), ""},
		{"zero", `{"n":0}`, intPtr(0), ""},
		{"exponent integer", `{"n":1e3}`, intPtr(1000), ""},
		{"integral float", `{"n":5.0}`, intPtr(5), ""},
		{"missing", `{}`, nil, ""},
		{"fraction", `{"n":2.5}`, nil, "Expected integer, received float"},
		{"negative", `{"n":-3}`, nil, "Number must be greater than or equal to 0"},
		{"null", `{"n":null}`, nil, "Expected number, received null"},
		{"string", `{"n":"4"}`, nil, "Expected number, received string"},
		{"too large", `{"n":1e300}`, nil, "Number must be less than or equal to 9007199254740991"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := parserFor(tt.body)
			got := p.NonNegativeInt("n")

			switch {
			case tt.want == nil && got != nil:
				t.Fatalf("got %d, want nil", *got)
			case tt.want != nil && (got == nil || *got != *tt.want):
				t.Fatalf("got %v, want %d", got, *tt.want)
			}

			err := p.Err()
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *core.ValidationError
			if !errors.As(err, &ve) || len(ve.Fields) != 1 {
				t.Fatalf("err = %v, want one field error", err)
			}
			if ve.Fields[0].Field != "n" || ve.Fields[0].Message != tt.wantMsg {
				t.Errorf("field error = %+v, want n: %s", ve.Fields[0], tt.wantMsg)
			}
		})
	}
}

func TestRequestBodyParser_NonNegativeNumber(t *testing.T) {
	p := parserFor(`{"a":12.75,"b":-0.5,"c":true}`)

	if got := p.NonNegativeNumber("a"); got == nil || *got != 12.75 {
		t.Fatalf("a = %v", got)
	}
	if got := p.NonNegativeNumber("b"); got != nil {
		t.Fatalf("b = %v, want nil", *got)
	}
	if got := p.NonNegativeNumber("c"); got != nil {
		t.Fatalf("c = %v, want nil", *got)
	}

	var ve *core.ValidationError
	if !errors.As(p.Err(), &ve) || len(ve.Fields) != 2 {
		t.Fatalf("err = %v, want two field errors", p.Err())
	}
}

func TestRequestBodyParser_BodyShape(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"object", `{"date":"x"}`, false},
		{"empty", ``, false},
		{"whitespace", "  \n", false},
		{"array", `[]`, true},
		{"scalar", `3`, true},
		{"malformed", `{"date"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parserFor(tt.body).Err()
			if tt.wantErr != (err != nil) {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequestBodyParser_TooLarge(t *testing.T) {
	body := `{"date":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	err := parserFor(body).Err()

	var ve *core.ValidationError
	if !errors.As(err, &ve) || ve.Fields[0].Message != "Request body too large" {
		t.Fatalf("err = %v", err)
	}
}

func TestParseEntryPatch_AllOptional(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/time-entries/x", strings.NewReader(`{}`))
	patch, err := ParseEntryPatch(httptest.NewRecorder(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !patch.IsEmpty() {
		t.Fatalf("patch = %+v, want empty", patch)
	}
}

func TestRequireMethod(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		allowed []string
		wantErr bool
	}{
		{"GET allowed", http.MethodGet, []string{http.MethodGet}, false},
		{"HEAD allowed with multiple", http.MethodHead, []string{http.MethodGet, http.MethodHead}, false},
		{"POST not allowed", http.MethodPost, []string{http.MethodGet}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			result := RequireMethod(req, tt.allowed...)

			if tt.wantErr && result == nil {
				t.Error("Expected error response but got nil")
			}
			if !tt.wantErr && result != nil {
				t.Error("Expected nil but got error response")
			}
		})
	}
}

func intPtr(v int) *int { return &v }
