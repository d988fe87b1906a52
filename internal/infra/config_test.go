package infra

import "testing"

func TestValidateReadModeSwitches(t *testing.T) {
	cases := []struct {
		name     string
		enabled  bool
		readMode string
		wantErr  bool
		wantMode string
	}{
		{"db without framework is contradictory", false, "db", true, ""},
		{"db with framework enabled", true, "db", false, "db"},
		{"unknown read mode rejected", true, "s3", true, ""},
		{"empty normalized to asset", false, "", false, "asset"},
		{"asset stays asset", false, "asset", false, "asset"},
		{"case and padding tolerated", true, "  DB ", false, "db"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.Framework.Enabled = c.enabled
			cfg.Framework.ReadMode = c.readMode

			err := cfg.Validate()
			if c.wantErr {
				if err == nil {
					t.Fatal("expected a configuration error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Framework.ReadMode != c.wantMode {
				t.Fatalf("read mode = %q, want %q", cfg.Framework.ReadMode, c.wantMode)
			}
		})
	}
}

func TestValidateClampsSampleRate(t *testing.T) {
	// Опечатка оператора в ENV не должна ронять сервис: зажимаем, а не отказываем
	cases := []struct {
		in   float64
		want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.3, 0.3},
		{1, 1},
		{1.5, 1},
	}

	for _, c := range cases {
		cfg := &Config{}
		cfg.Audit.SampleRate = c.in
		if err := cfg.Validate(); err != nil {
			t.Fatalf("rate %v: unexpected error: %v", c.in, err)
		}
		if cfg.Audit.SampleRate != c.want {
			t.Fatalf("rate %v: got %v, want %v", c.in, cfg.Audit.SampleRate, c.want)
		}
	}
}
