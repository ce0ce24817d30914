package monitor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParseZpoolList(t *testing.T) {
	out := []byte("tank\tONLINE\nbackup\tDEGRADED\n\nspare\tUNAVAIL\n")

	pools, err := parseZpoolList(out)
	if err != nil {
		t.Fatalf("parseZpoolList: %v", err)
	}

	want := []PoolStatus{
		{Name: "tank", Health: HealthOnline},
		{Name: "backup", Health: HealthDegraded},
		{Name: "spare", Health: HealthUnavailable},
	}
	if len(pools) != len(want) {
		t.Fatalf("got %d pools, want %d", len(pools), len(want))
	}
	for i := range want {
		if pools[i] != want[i] {
			t.Errorf("pool[%d] = %+v, want %+v", i, pools[i], want[i])
		}
	}
}

func TestParseZpoolListEmpty(t *testing.T) {
	pools, err := parseZpoolList(nil)
	if err != nil {
		t.Fatalf("parseZpoolList: %v", err)
	}
	if len(pools) != 0 {
		t.Errorf("got %d pools, want 0", len(pools))
	}
}

func TestParseZpoolListErrors(t *testing.T) {
	for _, in := range []string{
		"tank\n",
		"tank\tONLINE\textra\n",
		"tank\tSUSPENDED\n",
	} {
		if _, err := parseZpoolList([]byte(in)); err == nil {
			t.Errorf("parseZpoolList(%q): expected error", in)
		}
	}
}

func fakeZpool(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zpool")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestZpoolSourcePools(t *testing.T) {
	cmd := fakeZpool(t, `printf 'tank\tONLINE\nscratch\tFAULTED\n'`)

	pools, err := NewZpoolSource(cmd).Pools(context.Background())
	if err != nil {
		t.Fatalf("Pools: %v", err)
	}
	if len(pools) != 2 {
		t.Fatalf("got %d pools, want 2", len(pools))
	}
	if pools[1].Name != "scratch" || pools[1].Health != HealthFaulted {
		t.Errorf("pool[1] = %+v", pools[1])
	}
}

func TestZpoolSourceCommandFailure(t *testing.T) {
	cmd := fakeZpool(t, "echo 'no pools available' >&2\nexit 1\n")

	if _, err := NewZpoolSource(cmd).Pools(context.Background()); err == nil {
		t.Fatal("expected error when zpool exits non-zero")
	}
}

func TestNewZpoolSourceDefault(t *testing.T) {
	if z := NewZpoolSource(""); z.command != "zpool" {
		t.Errorf("command = %q, want zpool", z.command)
	}
}
