package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ooovooo/backend/internal/models"
	"github.com/ooovooo/backend/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultSkinCategory = "animals"
	MaxSkinUploadBytes  = 5 << 20
)

var (
	skinIDPattern = regexp.MustCompile(`^[a-z0-9]+(?:[_-][a-z0-9]+)*$`)
	pngSignature  = []byte("\x89PNG\r\n\x1a\n")
)

// ArtworkStore persists skin images and returns their public URL.
type ArtworkStore interface {
	SaveArtwork(ctx context.Context, id string, data []byte) (string, error)
}

// DiskArtworkStore writes images into the directory served at /schemes.
type DiskArtworkStore struct {
	Dir       string
	URLPrefix string
}

func (d DiskArtworkStore) SaveArtwork(_ context.Context, id string, data []byte) (string, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create schemes dir: %w", err)
	}
	name := id + ".png"
	if err := os.WriteFile(filepath.Join(d.Dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write artwork: %w", err)
	}
	return strings.TrimRight(d.URLPrefix, "/") + "/" + name, nil
}

type SkinService struct {
	skins    repository.SkinStore
	artwork  ArtworkStore
	localDir string // scanned for images that predate the catalog
	log      *zap.Logger
}

func NewSkinService(skins repository.SkinStore, artwork ArtworkStore, localDir string, log *zap.Logger) *SkinService {
	return &SkinService{skins: skins, artwork: artwork, localDir: localDir, log: log}
}

type UploadSkinInput struct {
	ID       string
	Name     string
	Category string
	Data     []byte
}

// Upload stores a PNG skin and upserts its catalog entry.
func (s *SkinService) Upload(ctx context.Context, in UploadSkinInput) (*models.SkinDesign, error) {
	id := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(in.ID, ".png")))
	if !skinIDPattern.MatchString(id) {
		return nil, invalid("id may contain lowercase letters, digits, '_' and '-' only")
	}
	if len(in.Data) == 0 {
		return nil, invalid("image is required")
	}
	if len(in.Data) > MaxSkinUploadBytes {
		return nil, invalid("image is too large")
	}
	if !bytes.HasPrefix(in.Data, pngSignature) {
		return nil, invalid("only PNG images are accepted")
	}

	url, err := s.artwork.SaveArtwork(ctx, id, in.Data)
	if err != nil {
		return nil, err
	}

	category, name := ParseSkinID(id)
	if c := strings.TrimSpace(in.Category); c != "" {
		category = c
	}
	if n := strings.TrimSpace(in.Name); n != "" {
		name = n
	}
	design := &models.SkinDesign{ID: id, Name: name, Category: category, ImageURL: url}
	if err := s.skins.Upsert(ctx, design); err != nil {
		return nil, err
	}
	s.log.Info("skin uploaded", zap.String("id", id), zap.String("url", url))
	return design, nil
}

// List returns the catalog plus any PNG in the local schemes directory
// that has no catalog entry yet.
func (s *SkinService) List(ctx context.Context) ([]models.SkinDesign, error) {
	designs, err := s.skins.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.localDir == "" {
		return designs, nil
	}

	known := make(map[string]bool, len(designs))
	for _, d := range designs {
		known[d.ID] = true
	}
	entries, err := os.ReadDir(s.localDir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("reading schemes dir failed", zap.String("dir", s.localDir), zap.Error(err))
		}
		return designs, nil
	}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if known[id] {
			continue
		}
		category, name := ParseSkinID(id)
		designs = append(designs, models.SkinDesign{ID: id, Name: name, Category: category, ImageURL: "/schemes/" + e.Name()})
	}
	return designs, nil
}

// ParseSkinID splits "category_name" ids. Ids without a category fall into
// "animals". The name is title-cased with underscores as spaces.
func ParseSkinID(id string) (category, name string) {
	category = defaultSkinCategory
	raw := id
	if i := strings.Index(id, "_"); i > 0 && i < len(id)-1 {
		category = id[:i]
		raw = id[i+1:]
	}
	words := strings.FieldsFunc(raw, func(r rune) bool { return r == '_' || r == '-' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return category, strings.Join(words, " ")
}
