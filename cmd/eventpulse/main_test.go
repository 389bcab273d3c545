package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()

	base := t.TempDir()
	doc := fmt.Sprintf(`[paths]
data_dir = %q
raw_dir = %q
contracts_dir = %q
incoming_dir = %q
archive_dir = %q
log_dir = %q
api_bind = ""
`,
		filepath.Join(base, "data"),
		filepath.Join(base, "data", "raw"),
		filepath.Join(base, "contracts"),
		filepath.Join(base, "incoming"),
		filepath.Join(base, "archive"),
		filepath.Join(base, "logs"),
	)
	path := filepath.Join(base, "eventpulse.toml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v\n%s", err, out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("second init without --overwrite should fail")
	}
	if _, err := runCommand(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("init with --overwrite: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	configPath := writeTestConfig(t)
	out, err := runCommand(t, "--config", configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("output = %q", out)
	}
}

func TestSubmitListShow(t *testing.T) {
	configPath := writeTestConfig(t)

	src := filepath.Join(t.TempDir(), "parcels.csv")
	if err := os.WriteFile(src, []byte("id,amount\n1,10\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	out, err := runCommand(t, "--config", configPath, "submit", "parcels", src)
	if err != nil {
		t.Fatalf("submit: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Submitted") {
		t.Fatalf("submit output = %q", out)
	}

	out, err = runCommand(t, "--config", configPath, "list", "--json")
	if err != nil {
		t.Fatalf("list: %v\n%s", err, out)
	}
	var payload struct {
		Ingestions []struct {
			ID      string `json:"id"`
			Dataset string `json:"dataset"`
			Status  string `json:"status"`
		} `json:"ingestions"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode list: %v\n%s", err, out)
	}
	if len(payload.Ingestions) != 1 || payload.Ingestions[0].Dataset != "parcels" {
		t.Fatalf("list payload = %+v", payload)
	}
	if payload.Ingestions[0].Status != "RECEIVED" {
		t.Fatalf("status = %q", payload.Ingestions[0].Status)
	}

	out, err = runCommand(t, "--config", configPath, "show", payload.Ingestions[0].ID)
	if err != nil {
		t.Fatalf("show: %v\n%s", err, out)
	}
	if !strings.Contains(out, "parcels") || !strings.Contains(out, "RECEIVED") {
		t.Fatalf("show output = %q", out)
	}
}

func TestContractValidateCommand(t *testing.T) {
	configPath := writeTestConfig(t)
	contractsDir := filepath.Join(filepath.Dir(configPath), "contracts")
	if err := os.MkdirAll(contractsDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	doc := "dataset: parcels\nprimary_key: id\ncolumns:\n  id:\n    type: string\n"
	if err := os.WriteFile(filepath.Join(contractsDir, "parcels.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write contract: %v", err)
	}

	out, err := runCommand(t, "--config", configPath, "contract", "validate", "parcels")
	if err != nil {
		t.Fatalf("contract validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "valid") {
		t.Fatalf("output = %q", out)
	}

	if _, err := runCommand(t, "--config", configPath, "contract", "validate", "absent"); err == nil {
		t.Fatal("validating a missing contract should fail")
	}
}

func TestHealthCommand(t *testing.T) {
	configPath := writeTestConfig(t)
	out, err := runCommand(t, "--config", configPath, "health", "--json")
	if err != nil {
		t.Fatalf("health: %v\n%s", err, out)
	}
	var payload struct {
		Healthy bool  `json:"healthy"`
		Total   int64 `json:"total"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if !payload.Healthy || payload.Total != 0 {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestPruneCommandEmptyRegistry(t *testing.T) {
	configPath := writeTestConfig(t)
	out, err := runCommand(t, "--config", configPath, "prune", "--older-than-days", "1")
	if err != nil {
		t.Fatalf("prune: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Pruned 0") {
		t.Fatalf("output = %q", out)
	}

	if _, err := runCommand(t, "--config", configPath, "prune", "--older-than-days", "0"); err == nil {
		t.Fatal("non-positive retention should be rejected")
	}
}

func TestReclaimCommandEmptyRegistry(t *testing.T) {
	configPath := writeTestConfig(t)
	out, err := runCommand(t, "--config", configPath, "reclaim")
	if err != nil {
		t.Fatalf("reclaim: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Reclaimed 0") {
		t.Fatalf("output = %q", out)
	}
}
