package main

import "testing"

func TestNewBrowserModel(t *testing.T) {
	m, err := newBrowserModel([]string{"a.ppkg"})
	if err != nil {
		t.Fatalf("newBrowserModel: %v", err)
	}
	if m.cache == nil {
		t.Fatal("browser model has no decode cache")
	}
	if len(m.files) != 1 {
		t.Errorf("files = %v, want the one input", m.files)
	}
}
