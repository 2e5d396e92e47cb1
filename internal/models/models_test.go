package models

import (
	"strings"
	"testing"
)

func TestResponseValidate(t *testing.T) {
	cases := []struct {
		name     string
		response Response
		wantErr  error
	}{
		{"valid", Response{From: "15551234567", Body: "hello", Time: 1}, nil},
		{"empty sender", Response{Body: "hello"}, ErrEmptyUserID},
		{"empty body", Response{From: "15551234567"}, ErrEmptyMessage},
		{"too long", Response{From: "15551234567", Body: strings.Repeat("a", MaxMessageLength+1)}, ErrMessageTooLong},
		{"at limit", Response{From: "15551234567", Body: strings.Repeat("a", MaxMessageLength)}, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := c.response.Validate(); err != c.wantErr {
				t.Errorf("Validate() = %v, want %v", err, c.wantErr)
			}
		})
	}
}

func TestAPIResponseEnvelopes(t *testing.T) {
	ok := Success([]string{"a", "b"})
	if ok.Status != APIStatusOK || ok.Message != "" || ok.Result == nil {
		t.Errorf("Success envelope = %+v", ok)
	}

	bad := Error("something broke")
	if bad.Status != APIStatusError || bad.Message != "something broke" || bad.Result != nil {
		t.Errorf("Error envelope = %+v", bad)
	}
}
