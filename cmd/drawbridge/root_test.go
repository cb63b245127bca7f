package main

import (
	"os"
	"path/filepath"
	"testing"

	"arcadehall/drawbridge/pkg/cli"
	"arcadehall/drawbridge/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{
		"run":      false,
		"wait":     false,
		"validate": false,
		"version":  false,
	}

	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}

	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestBuildProber(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		wantErr bool
	}{
		{name: "tcp probe", kind: "tcp"},
		{name: "http probe", kind: "http"},
		{name: "unknown kind", kind: "carrier-pigeon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Probe.Kind = tt.kind
			cfg.Probe.Address = "127.0.0.1:5432"
			cfg.Probe.URL = "http://127.0.0.1:9000/health"

			_, err := buildProber(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("buildProber() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  listen_address: "127.0.0.1:0"
static:
  root: ` + dir + `
probe:
  kind: tcp
  address: "127.0.0.1:5432"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	origCfg := cfgFile
	cfgFile = path
	defer func() { cfgFile = origCfg }()

	if err := runValidate(validateCmd, nil); err != nil {
		t.Errorf("runValidate() error: %v", err)
	}
}

func TestValidateCommand_MissingConfigIsConfigError(t *testing.T) {
	origCfg := cfgFile
	cfgFile = filepath.Join(t.TempDir(), "nope.yaml")
	defer func() { cfgFile = origCfg }()

	err := runValidate(validateCmd, nil)
	if err == nil {
		t.Fatal("runValidate() accepted a missing config file")
	}
	if got := cli.ExitCodeFor(err); got != cli.ExitConfig {
		t.Errorf("exit code = %d, want %d", got, cli.ExitConfig)
	}
}
