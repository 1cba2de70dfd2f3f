package config

import (
	"testing"
	"time"

	kit "transitsync/internal/platform/testkit"
)

func TestPrefixAndKey(t *testing.T) {
	root := New()
	src := root.Prefix("SOURCE_")
	if got := src.key("BASE_URL"); got != "SOURCE_BASE_URL" {
		t.Fatalf("key() = %q, want %q", got, "SOURCE_BASE_URL")
	}
	// nested prefix
	pg := root.Prefix("SERVICE_").Prefix("PGSQL_")
	if got := pg.key("URL"); got != "SERVICE_PGSQL_URL" {
		t.Fatalf("nested key() = %q, want %q", got, "SERVICE_PGSQL_URL")
	}
}

func TestMustString(t *testing.T) {
	c := New().Prefix("APP_")
	t.Setenv("APP_NAME", "  transitsync ")
	if got := c.MustString("NAME"); got != "transitsync" {
		t.Fatalf("MustString = %q, want %q", got, "transitsync")
	}

	kit.MustPanic(t, func() { _ = c.MustString("MISSING") })
}

func TestMustURL(t *testing.T) {
	c := New().Prefix("SOURCE_")
	t.Setenv("SOURCE_BASE_URL", "https://transit.example/api")
	u := c.MustURL("BASE_URL")
	if u.Host != "transit.example" {
		t.Fatalf("MustURL host = %q", u.Host)
	}

	t.Setenv("SOURCE_BAD", "not a url at all ://")
	kit.MustPanic(t, func() { _ = c.MustURL("BAD") })
	kit.MustPanic(t, func() { _ = c.MustURL("MISSING") })
}

func TestMayInt(t *testing.T) {
	c := New().Prefix("CORE_BULK_")
	t.Setenv("CORE_BULK_WORKERS", " 16 ")
	if got := c.MayInt("WORKERS", 8); got != 16 {
		t.Fatalf("MayInt = %d, want 16", got)
	}
	if got := c.MayInt("MISSING", 8); got != 8 {
		t.Fatalf("MayInt default = %d, want 8", got)
	}
	t.Setenv("CORE_BULK_BAD", "x")
	if got := c.MayInt("BAD", 8); got != 8 {
		t.Fatalf("MayInt invalid = %d, want fallback 8", got)
	}
}

func TestMayBoolAndString(t *testing.T) {
	c := New().Prefix("F_")
	t.Setenv("F_ON", "true")
	if !c.MayBool("ON", false) {
		t.Fatalf("MayBool true expected")
	}
	if c.MayBool("MISSING", false) {
		t.Fatalf("MayBool default expected false")
	}
	if got := c.MayString("MISSING", "fallback"); got != "fallback" {
		t.Fatalf("MayString default = %q", got)
	}
}

func TestMayDuration(t *testing.T) {
	c := New().Prefix("CORE_FOLLOW_")
	t.Setenv("CORE_FOLLOW_SLEEP", "45s")
	if got := c.MayDuration("SLEEP", 30*time.Second); got != 45*time.Second {
		t.Fatalf("MayDuration = %v, want 45s", got)
	}
	if got := c.MayDuration("MISSING", 30*time.Second); got != 30*time.Second {
		t.Fatalf("MayDuration default = %v", got)
	}
}
