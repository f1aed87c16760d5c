package helper

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestGenerateUUID(t *testing.T) {
	a, err := GenerateUUID()
	if err != nil {
		t.Fatalf("GenerateUUID: %v", err)
	}
	b, _ := GenerateUUID()
	if a == b {
		t.Error("expected distinct ids")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("invalid uuid %q: %v", a, err)
	}
}

func TestCreateFolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b")
	if err := CreateFolder(path); err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		t.Errorf("folder not created: %v", err)
	}
	if err := CreateFolder(path); err != nil {
		t.Errorf("existing folder should be fine: %v", err)
	}
}

func TestPrettyPrint(t *testing.T) {
	var buf bytes.Buffer
	PrettyPrint(&buf, map[string]int{"chunks": 3})
	if got, want := buf.String(), "{\n  \"chunks\": 3\n}\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWithTimeout(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, ok := ctx.Deadline(); !ok {
		t.Error("expected a deadline")
	}

	ctx, cancel = WithTimeout(context.Background(), 0)
	if _, ok := ctx.Deadline(); ok {
		t.Error("zero timeout must not set a deadline")
	}
	cancel()
	if ctx.Err() == nil {
		t.Error("cancel must end the context")
	}
}
