package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ooovooo/backend/internal/repository/repotest"
	"go.uber.org/zap"
)

var tinyPNG = append([]byte("\x89PNG\r\n\x1a\n"), []byte("IHDR....")...)

func TestParseSkinID(t *testing.T) {
	cases := []struct{ id, category, name string }{
		{"animals_red_panda", "animals", "Red Panda"},
		{"space_rocket", "space", "Rocket"},
		{"heart", "animals", "Heart"},
		{"retro-wave", "animals", "Retro Wave"},
		{"álom", "animals", "Álom"},
		{"nature_élet_fa", "nature", "Élet Fa"},
		{"ünnep-ősz", "animals", "Ünnep Ősz"},
	}
	for _, c := range cases {
		category, name := ParseSkinID(c.id)
		if category != c.category || name != c.name {
			t.Fatalf("ParseSkinID(%q) = %q %q, want %q %q", c.id, category, name, c.category, c.name)
		}
	}
}

func TestSkinUpload_WritesDiskAndCatalog(t *testing.T) {
	dir := t.TempDir()
	store := repotest.New()
	svc := NewSkinService(store.Skins(), DiskArtworkStore{Dir: dir, URLPrefix: "/schemes/"}, dir, zap.NewNop())
	ctx := context.Background()

	design, err := svc.Upload(ctx, UploadSkinInput{ID: "Space_Rocket.png", Data: tinyPNG})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if design.ID != "space_rocket" || design.Category != "space" || design.ImageURL != "/schemes/space_rocket.png" {
		t.Fatalf("unexpected design %+v", design)
	}
	if _, err := os.Stat(filepath.Join(dir, "space_rocket.png")); err != nil {
		t.Fatalf("artwork not written: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "animals_cat.png"), tinyPNG, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected catalog plus loose file, got %+v", list)
	}
	seen := map[string]string{}
	for _, d := range list {
		seen[d.ID] = d.ImageURL
	}
	if seen["animals_cat"] != "/schemes/animals_cat.png" || seen["space_rocket"] == "" {
		t.Fatalf("unexpected listing %v", seen)
	}
}

func TestSkinUpload_Rejections(t *testing.T) {
	svc := NewSkinService(repotest.New().Skins(), DiskArtworkStore{Dir: t.TempDir()}, "", zap.NewNop())
	ctx := context.Background()

	cases := []UploadSkinInput{
		{ID: "../evil", Data: tinyPNG},
		{ID: "has space", Data: tinyPNG},
		{ID: "ok_id"},
		{ID: "ok_id", Data: []byte("GIF89a")},
		{ID: "ok_id", Data: append(append([]byte{}, tinyPNG...), make([]byte, MaxSkinUploadBytes)...)},
	}
	for i, in := range cases {
		if _, err := svc.Upload(ctx, in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d: expected invalid input, got %v", i, err)
		}
	}
}
