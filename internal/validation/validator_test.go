package validation

import (
	"errors"
	"testing"
)

type sample struct {
	Latitude float64 `json:"latitude" validate:"latitude"`
	Link     string  `json:"link" validate:"omitempty,http_url"`
	Limit    int     `json:"limit" validate:"min=1,max=100"`
	Title    string  `json:"title" validate:"max=5"`
	Strategy string  `json:"strategy" validate:"omitempty,oneof=scan geo"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     sample
		wantField string
		wantMsg   string
	}{
		{name: "valid", input: sample{Latitude: 40.7, Link: "https://example.com", Limit: 10, Title: "ok"}},
		{name: "latitude out of range", input: sample{Latitude: 91, Limit: 1}, wantField: "latitude", wantMsg: "latitude must be a valid latitude (-90 to 90)"},
		{name: "bad link", input: sample{Link: "ftp//nope", Limit: 1}, wantField: "link", wantMsg: "link must be a valid http or https URL"},
		{name: "limit too small", input: sample{Limit: 0}, wantField: "limit", wantMsg: "limit must be at least 1"},
		{name: "title too long", input: sample{Limit: 1, Title: "toolong"}, wantField: "title", wantMsg: "title must be at most 5 characters"},
		{name: "unknown strategy", input: sample{Limit: 1, Strategy: "rtree"}, wantField: "strategy", wantMsg: "strategy must be one of: scan geo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(&tt.input)

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var ve Errors
			if !errors.As(err, &ve) {
				t.Fatalf("expected Errors, got %T (%v)", err, err)
			}
			first := ve.First()
			if first.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", first.Field, tt.wantField)
			}
			if first.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", first.Message, tt.wantMsg)
			}
		})
	}
}

func TestValidatorIsShared(t *testing.T) {
	if Validator() != Validator() {
		t.Error("Validator() should return the same instance")
	}
}
