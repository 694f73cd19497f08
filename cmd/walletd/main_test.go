package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// scriptPins feeds answers to the PIN prompt in order.
func scriptPins(t *testing.T, answers ...string) {
	t.Helper()
	orig := promptPin
	t.Cleanup(func() { promptPin = orig })
	promptPin = func(cmd *cobra.Command, label string) (string, error) {
		if len(answers) == 0 {
			t.Fatalf("unexpected prompt %q", label)
		}
		next := answers[0]
		answers = answers[1:]
		return next, nil
	}
}

func storeFlags(t *testing.T) []string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Setenv("HOME", tmp)
	return []string{"--store", "toml", "--store-path", filepath.Join(tmp, "store.toml"), "--log-level", "disabled"}
}

func TestPinLifecycle(t *testing.T) {
	flags := storeFlags(t)
	pin := func(args ...string) []string { return append(append([]string{"pin"}, args...), flags...) }

	out, err := run(t, pin("status")...)
	if err != nil || !strings.Contains(out, "no pin set") {
		t.Fatalf("status: %q %v", out, err)
	}

	scriptPins(t, "1234", "1234")
	if _, err := run(t, pin("set")...); err != nil {
		t.Fatalf("set: %v", err)
	}

	scriptPins(t, "1234")
	if out, err := run(t, pin("verify")...); err != nil || !strings.Contains(out, "pin ok") {
		t.Fatalf("verify: %q %v", out, err)
	}

	scriptPins(t, "0000")
	if _, err := run(t, pin("verify")...); err == nil {
		t.Fatal("wrong pin verified")
	}

	scriptPins(t, "9999", "5678", "5678")
	if _, err := run(t, pin("change")...); err == nil {
		t.Fatal("change with wrong current pin succeeded")
	}

	scriptPins(t, "1234", "5678", "5678")
	if _, err := run(t, pin("change")...); err != nil {
		t.Fatalf("change: %v", err)
	}

	scriptPins(t, "5678")
	if _, err := run(t, pin("verify")...); err != nil {
		t.Fatalf("verify after change: %v", err)
	}
}

func TestPinSet_Mismatch(t *testing.T) {
	flags := storeFlags(t)
	scriptPins(t, "1234", "4321")
	if _, err := run(t, append([]string{"pin", "set"}, flags...)...); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestPinSet_AlreadySet(t *testing.T) {
	flags := storeFlags(t)
	scriptPins(t, "1234", "1234")
	if _, err := run(t, append([]string{"pin", "set"}, flags...)...); err != nil {
		t.Fatalf("set: %v", err)
	}
	scriptPins(t)
	if _, err := run(t, append([]string{"pin", "set"}, flags...)...); err == nil {
		t.Fatal("second set must fail")
	}
}

func TestPinReset_RequiresConfirm(t *testing.T) {
	flags := storeFlags(t)
	scriptPins(t, "1234", "1234")
	if _, err := run(t, append([]string{"pin", "set"}, flags...)...); err != nil {
		t.Fatalf("set: %v", err)
	}

	scriptPins(t)
	if _, err := run(t, append([]string{"pin", "reset"}, flags...)...); err == nil {
		t.Fatal("reset without --confirm must fail")
	}

	scriptPins(t, "4444", "4444")
	if _, err := run(t, append([]string{"pin", "reset", "--confirm"}, flags...)...); err != nil {
		t.Fatalf("reset: %v", err)
	}
	scriptPins(t, "4444")
	if _, err := run(t, append([]string{"pin", "verify"}, flags...)...); err != nil {
		t.Fatalf("verify after reset: %v", err)
	}
}

func TestQR(t *testing.T) {
	out, err := run(t, "qr", "bitcoin:1abc")
	if err != nil {
		t.Fatalf("qr: %v", err)
	}
	if !strings.HasPrefix(out, "data:image/png;base64,") {
		t.Fatalf("unexpected output %q", out)
	}

	file := filepath.Join(t.TempDir(), "code.png")
	if _, err := run(t, "qr", "bitcoin:1abc", "--size", "128", "-o", file); err != nil {
		t.Fatalf("qr to file: %v", err)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatal("output is not a png")
	}
}

func TestConfigInit(t *testing.T) {
	storeFlags(t)
	path := filepath.Join(t.TempDir(), "walletd.toml")

	out, err := run(t, "config", "init", "--config", path)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if strings.TrimSpace(out) != path {
		t.Fatalf("unexpected output %q", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "[proxy]") {
		t.Fatalf("config missing proxy table:\n%s", data)
	}

	if _, err := run(t, "config", "init", "--config", path); err == nil {
		t.Fatal("expected error for existing file")
	}
	if _, err := run(t, "config", "init", "--config", path, "--force"); err != nil {
		t.Fatalf("forced init: %v", err)
	}
}
