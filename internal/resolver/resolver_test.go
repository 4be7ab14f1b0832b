package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/timvw/term-courier/internal/model"
	"github.com/timvw/term-courier/internal/winsys"
)

// fakeSys is an in-memory window system for resolver tests.
type fakeSys struct {
	windows  []model.Window
	children map[string][]model.Window
	pointer  model.Point
	listErr  error
}

var _ winsys.WindowSystem = (*fakeSys)(nil)

func (f *fakeSys) ListWindows(ctx context.Context) ([]model.Window, error) {
	return f.windows, f.listErr
}

func (f *fakeSys) ChildWindows(ctx context.Context, id string) ([]model.Window, error) {
	return f.children[id], nil
}

func (f *fakeSys) WindowInfo(ctx context.Context, id string) (model.Window, error) {
	for _, w := range f.windows {
		if w.ID == id {
			return w, nil
		}
	}
	return model.Window{}, errors.New("no such window")
}

func (f *fakeSys) ActiveWindow(ctx context.Context) (model.Window, error) {
	return model.Window{}, errors.New("no active window")
}

func (f *fakeSys) PointerLocation(ctx context.Context) (model.Point, error) {
	return f.pointer, nil
}

func (f *fakeSys) Activate(ctx context.Context, id string) error { return nil }

func (f *fakeSys) IsAlive(ctx context.Context, id string) bool { return true }

func newResolver(sys *fakeSys) *Resolver {
	return &Resolver{Sys: sys, SelfPID: 99999}
}

func TestResolve_PicksWindowUnderPoint(t *testing.T) {
	sys := &fakeSys{
		windows: []model.Window{
			{ID: "1", PID: 100, ProcessName: "putty", Rect: model.Rect{X: 0, Y: 0, Width: 800, Height: 600}},
			{ID: "2", PID: 200, ProcessName: "xterm", Rect: model.Rect{X: 1000, Y: 0, Width: 800, Height: 600}},
		},
	}
	r := newResolver(sys)

	got, err := r.Resolve(context.Background(), model.Point{X: 1100, Y: 50})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got.ID != "2" {
		t.Errorf("resolved window %q, want %q", got.ID, "2")
	}
}

func TestResolve_PrefersSmallestContainingWindow(t *testing.T) {
	// A small window stacked over a large one: the small one is the more
	// specific pick.
	sys := &fakeSys{
		windows: []model.Window{
			{ID: "big", PID: 100, Rect: model.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}},
			{ID: "small", PID: 200, Rect: model.Rect{X: 100, Y: 100, Width: 400, Height: 300}},
		},
	}
	r := newResolver(sys)

	got, err := r.Resolve(context.Background(), model.Point{X: 150, Y: 150})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got.ID != "small" {
		t.Errorf("resolved window %q, want %q", got.ID, "small")
	}
}

func TestResolve_DescendsToDeepestChild(t *testing.T) {
	sys := &fakeSys{
		windows: []model.Window{
			{ID: "top", PID: 100, ProcessName: "mobaxterm", Class: "MobaXterm", Title: "MobaXterm",
				Rect: model.Rect{X: 0, Y: 0, Width: 1600, Height: 900}},
		},
		children: map[string][]model.Window{
			"top": {
				{ID: "panel", Rect: model.Rect{X: 0, Y: 0, Width: 200, Height: 900}},
				{ID: "termhost", Rect: model.Rect{X: 200, Y: 0, Width: 1400, Height: 900}},
			},
			"termhost": {
				{ID: "input", Rect: model.Rect{X: 210, Y: 10, Width: 1380, Height: 880}},
			},
		},
	}
	r := newResolver(sys)

	got, err := r.Resolve(context.Background(), model.Point{X: 800, Y: 450})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got.ID != "input" {
		t.Errorf("resolved window %q, want deepest child %q", got.ID, "input")
	}
	// Identity inherited from the top-level owner.
	if got.PID != 100 {
		t.Errorf("PID: got %d, want inherited %d", got.PID, 100)
	}
	if got.ProcessName != "mobaxterm" {
		t.Errorf("ProcessName: got %q, want inherited %q", got.ProcessName, "mobaxterm")
	}
}

func TestResolve_RejectsOwnProcess(t *testing.T) {
	sys := &fakeSys{
		windows: []model.Window{
			{ID: "self", PID: 99999, Rect: model.Rect{X: 0, Y: 0, Width: 800, Height: 600}},
		},
	}
	r := newResolver(sys)

	_, err := r.Resolve(context.Background(), model.Point{X: 10, Y: 10})
	if err == nil {
		t.Fatal("expected error when the only window belongs to this process")
	}
	if model.CodeOf(err) != model.CodeNotFound {
		t.Errorf("error code %q, want %q", model.CodeOf(err), model.CodeNotFound)
	}
}

func TestResolve_SkipsExcludedClasses(t *testing.T) {
	sys := &fakeSys{
		windows: []model.Window{
			{ID: "desk", PID: 1, Class: "Desktop", Rect: model.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}},
			{ID: "term", PID: 2, Class: "XTerm", Rect: model.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}},
		},
	}
	r := newResolver(sys)

	got, err := r.Resolve(context.Background(), model.Point{X: 500, Y: 500})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got.ID != "term" {
		t.Errorf("resolved window %q, want %q", got.ID, "term")
	}
}

func TestResolve_ExtraExcludedClasses(t *testing.T) {
	sys := &fakeSys{
		windows: []model.Window{
			{ID: "overlay", PID: 2, Class: "MyOverlay", Rect: model.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}},
		},
	}
	r := newResolver(sys)
	r.ExcludedClasses = []string{"MyOverlay"}

	if _, err := r.Resolve(context.Background(), model.Point{X: 5, Y: 5}); model.CodeOf(err) != model.CodeNotFound {
		t.Errorf("expected not_found for excluded class, got %v", err)
	}
}

func TestResolve_ExcludedClassGlob(t *testing.T) {
	sys := &fakeSys{
		windows: []model.Window{
			{ID: "bar", PID: 2, Class: "Waybar-main", Rect: model.Rect{X: 0, Y: 0, Width: 1920, Height: 40}},
			{ID: "term", PID: 3, Class: "XTerm", Rect: model.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}},
		},
	}
	r := newResolver(sys)
	r.ExcludedClasses = []string{"Waybar-*"}

	got, err := r.Resolve(context.Background(), model.Point{X: 10, Y: 10})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got.ID != "term" {
		t.Errorf("resolved window %q, want %q (glob should exclude the bar)", got.ID, "term")
	}
}

func TestResolve_NotFoundOnEmptyPoint(t *testing.T) {
	sys := &fakeSys{
		windows: []model.Window{
			{ID: "1", PID: 100, Rect: model.Rect{X: 0, Y: 0, Width: 100, Height: 100}},
		},
	}
	r := newResolver(sys)

	_, err := r.Resolve(context.Background(), model.Point{X: 5000, Y: 5000})
	if err == nil {
		t.Fatal("expected not_found over empty desktop")
	}
	if model.CodeOf(err) != model.CodeNotFound {
		t.Errorf("error code %q, want %q", model.CodeOf(err), model.CodeNotFound)
	}
}

func TestResolveAtPointer_UsesPointerLocation(t *testing.T) {
	sys := &fakeSys{
		pointer: model.Point{X: 300, Y: 300},
		windows: []model.Window{
			{ID: "under-pointer", PID: 100, Rect: model.Rect{X: 250, Y: 250, Width: 100, Height: 100}},
		},
	}
	r := newResolver(sys)

	got, err := r.ResolveAtPointer(context.Background())
	if err != nil {
		t.Fatalf("ResolveAtPointer() error: %v", err)
	}
	if got.ID != "under-pointer" {
		t.Errorf("resolved window %q, want %q", got.ID, "under-pointer")
	}
}

func TestResolve_ChildWithoutPointStaysOnParent(t *testing.T) {
	sys := &fakeSys{
		windows: []model.Window{
			{ID: "top", PID: 100, Rect: model.Rect{X: 0, Y: 0, Width: 800, Height: 600}},
		},
		children: map[string][]model.Window{
			"top": {
				{ID: "sidebar", Rect: model.Rect{X: 0, Y: 0, Width: 100, Height: 600}},
			},
		},
	}
	r := newResolver(sys)

	got, err := r.Resolve(context.Background(), model.Point{X: 700, Y: 300})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if got.ID != "top" {
		t.Errorf("resolved window %q, want parent %q when no child contains the point", got.ID, "top")
	}
}
