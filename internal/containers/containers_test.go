package containers

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func fakeDocker(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake docker script requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "docker")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write fake docker: %v", err)
	}
	return path
}

func TestListParsesContainers(t *testing.T) {
	bin := fakeDocker(t, `cat <<'EOF'
{"ID":"abc123","Names":"grafana","Image":"grafana/grafana:latest","State":"running","CreatedAt":"2026-08-30 10:00:00 +0000 UTC"}
{"ID":"def456","Names":"old-job","Image":"busybox","State":"exited","CreatedAt":"2026-08-01 09:00:00 +0000 UTC"}
EOF
`)
	src := &CLI{Binary: bin}

	inv, err := src.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if inv.Total != 2 || inv.Running != 1 || inv.Stopped != 1 {
		t.Fatalf("unexpected totals: %+v", inv)
	}
	if inv.Containers[0].Name != "grafana" || inv.Containers[0].Status != "running" {
		t.Fatalf("unexpected first container: %+v", inv.Containers[0])
	}
}

func TestListEmptyOutput(t *testing.T) {
	src := &CLI{Binary: fakeDocker(t, "exit 0\n")}
	inv, err := src.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if inv.Total != 0 || len(inv.Containers) != 0 {
		t.Fatalf("expected empty inventory, got %+v", inv)
	}
}

func TestListDaemonUnavailable(t *testing.T) {
	src := &CLI{Binary: fakeDocker(t, "exit 1\n")}
	if _, err := src.List(context.Background()); err == nil {
		t.Fatal("expected error when the daemon is unreachable")
	}
}
