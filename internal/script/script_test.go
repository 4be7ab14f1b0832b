package script

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deploy.txt")
	content := "cd /srv/app\n# pull latest\ngit pull\n\nmake release\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	units, err := Load(path, true)
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}
	want := []string{"cd /srv/app", "git pull", "make release"}
	if len(units) != len(want) {
		t.Fatalf("units = %d, want %d", len(units), len(want))
	}
	for i, text := range want {
		if units[i].Text != text {
			t.Errorf("units[%d].Text = %q, want %q", i, units[i].Text, text)
		}
		if !units[i].AutoEnter {
			t.Errorf("units[%d].AutoEnter = false, want true", i)
		}
	}
}

func TestLoad_NoEnter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stage.txt")
	if err := os.WriteFile(path, []byte("rm -rf build\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	units, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load returned %v", err)
	}
	if len(units) != 1 || units[0].AutoEnter {
		t.Errorf("units = %+v, want one unit with AutoEnter off", units)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.txt"), true); err == nil {
		t.Fatal("Load of missing file returned nil error")
	}
}

func TestWatch_FiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.txt")
	if err := os.WriteFile(path, []byte("a\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 20*time.Millisecond, func() {
			fired <- struct{}{}
		})
	}()

	// Give the watcher a beat to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("a\nb\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("no change callback after write")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watch returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatch_IgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.txt")
	sibling := filepath.Join(dir, "other.txt")
	if err := os.WriteFile(path, []byte("a\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := make(chan struct{}, 4)
	go func() {
		_ = Watch(ctx, path, 20*time.Millisecond, func() {
			fired <- struct{}{}
		})
	}()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(sibling, []byte("noise\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-fired:
		t.Fatal("callback fired for a sibling file")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatch_CoalescesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.txt")
	if err := os.WriteFile(path, []byte("a\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fired := make(chan struct{}, 16)
	go func() {
		_ = Watch(ctx, path, 150*time.Millisecond, func() {
			fired <- struct{}{}
		})
	}()

	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("a\nb\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("no callback after burst")
	}
	select {
	case <-fired:
		t.Fatal("burst of writes produced more than one callback")
	case <-time.After(400 * time.Millisecond):
	}
}
