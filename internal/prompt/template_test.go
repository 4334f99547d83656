// internal/prompt/template_test.go
package prompt

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_DefaultTemplate(t *testing.T) {
	tmpl, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer tmpl.Close()

	out := tmpl.Render("Python (1)")
	if !strings.Contains(out, "Python (1)") {
		t.Errorf("Rendered prompt missing tree")
	}
	if strings.Contains(out, "{kb_tree}") {
		t.Errorf("Placeholder left in rendered prompt")
	}
}

func TestLoad_MissingFileFallsBack(t *testing.T) {
	tmpl, err := Load(filepath.Join(t.TempDir(), "absent.txt"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer tmpl.Close()

	if out := tmpl.Render("tree"); !strings.Contains(out, "tree") {
		t.Errorf("Default template not used for missing file")
	}
}

func TestLoad_FileTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.txt")
	if err := os.WriteFile(path, []byte("Custom prompt.\n\n{kb_tree}\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	tmpl, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer tmpl.Close()

	out := tmpl.Render("A (1)")
	if !strings.Contains(out, "Custom prompt.") || !strings.Contains(out, "A (1)") {
		t.Errorf("Rendered = %q", out)
	}
}

func TestTemplate_FailedReloadLogsAndKeepsText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.txt")
	if err := os.WriteFile(path, []byte("v1 {kb_tree}"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	tmpl, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer tmpl.Close()

	var buf bytes.Buffer
	tmpl.log = slog.New(slog.NewTextHandler(&buf, nil))

	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	tmpl.reload()

	if !strings.Contains(buf.String(), "failed to reload prompt template") {
		t.Errorf("Reload failure not logged: %q", buf.String())
	}
	if out := tmpl.Render(""); !strings.Contains(out, "v1") {
		t.Errorf("Previous template lost after failed reload: %q", out)
	}
}

func TestTemplate_HotReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.txt")
	if err := os.WriteFile(path, []byte("v1 {kb_tree}"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	tmpl, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer tmpl.Close()

	if out := tmpl.Render(""); !strings.Contains(out, "v1") {
		t.Fatalf("Initial template = %q", out)
	}

	if err := os.WriteFile(path, []byte("v2 {kb_tree}"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(tmpl.Render(""), "v2") {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Errorf("Template did not reload after file change")
}
