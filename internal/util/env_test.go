package util

import (
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	cases := []struct {
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{"on", false, true},
		{"false", true, false},
		{"0", true, false},
		{"No", true, false},
		{"off", true, false},
		{" true ", false, true},
		{"", true, true},
		{"", false, false},
		{"garbage", true, true},
		{"garbage", false, false},
	}
	for _, c := range cases {
		t.Setenv("TEST_BOOL", c.value)
		if got := ParseBoolEnv("TEST_BOOL", c.defaultValue); got != c.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", c.value, c.defaultValue, got, c.want)
		}
	}
}

func TestParseDurationEnv(t *testing.T) {
	cases := []struct {
		value        string
		defaultValue time.Duration
		want         time.Duration
	}{
		{"30s", time.Minute, 30 * time.Second},
		{"2h", time.Minute, 2 * time.Hour},
		{" 5m ", time.Minute, 5 * time.Minute},
		{"", time.Minute, time.Minute},
		{"garbage", time.Minute, time.Minute},
		{"30", time.Minute, time.Minute},
	}
	for _, c := range cases {
		t.Setenv("TEST_DURATION", c.value)
		if got := ParseDurationEnv("TEST_DURATION", c.defaultValue); got != c.want {
			t.Errorf("ParseDurationEnv(%q, %v) = %v, want %v", c.value, c.defaultValue, got, c.want)
		}
	}
}
