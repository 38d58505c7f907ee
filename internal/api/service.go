package api

import (
	"context"

	"github.com/liminal-notes/vaultcore/internal/home"
	"github.com/liminal-notes/vaultcore/internal/index"
	"github.com/liminal-notes/vaultcore/internal/indexer"
	"github.com/liminal-notes/vaultcore/internal/parser"
	"github.com/liminal-notes/vaultcore/internal/tags"
	"github.com/liminal-notes/vaultcore/internal/vault"
	"github.com/liminal-notes/vaultcore/internal/watcher"
)

// Service exposes the engine's query and write paths to host UI
// collaborators. Queries go straight to the index store; writes flow
// through the adapter, notify the change source, and trigger a
// synchronous re-index so the caller observes its own write.
type Service struct {
	adapter   vault.Adapter
	store     index.Store
	coord     *indexer.Coordinator
	catalogue *tags.Catalogue
	homeCat   *home.Catalogue
	source    watcher.ChangeSource
}

// NewService wires the API service.
func NewService(adapter vault.Adapter, store index.Store, coord *indexer.Coordinator,
	catalogue *tags.Catalogue, homeCat *home.Catalogue, source watcher.ChangeSource) *Service {
	return &Service{
		adapter:   adapter,
		store:     store,
		coord:     coord,
		catalogue: catalogue,
		homeCat:   homeCat,
		source:    source,
	}
}

// NoteDetail is the response payload for a single note.
type NoteDetail struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Content   string       `json:"content"`
	MtimeMs   int64        `json:"mtimeMs,omitempty"`
	Tags      []string     `json:"tags"`
	Backlinks []index.Link `json:"backlinks"`
}

// GetNote reads a note and enriches it with indexed backlinks and tags.
func (s *Service) GetNote(ctx context.Context, id string) (*NoteDetail, error) {
	note, err := s.adapter.ReadNote(ctx, id)
	if err != nil {
		return nil, err
	}
	bl, _ := s.store.Backlinks(ctx, id)
	if bl == nil {
		bl = []index.Link{}
	}
	noteTags, _ := s.store.TagsForNote(ctx, id)
	if noteTags == nil {
		noteTags = []string{}
	}
	_ = s.homeCat.Touch(ctx, id)
	return &NoteDetail{
		ID:        note.ID,
		Title:     parser.DeriveTitle(note.ID),
		Content:   note.Content,
		MtimeMs:   note.MtimeMs,
		Tags:      noteTags,
		Backlinks: bl,
	}, nil
}

// WriteNote writes through the adapter, records the internal write so
// the next poll does not re-report it, and re-indexes immediately.
func (s *Service) WriteNote(ctx context.Context, id, content string) (*NoteDetail, error) {
	if _, err := s.adapter.WriteNote(ctx, id, content, &vault.WriteOptions{CreateParents: true}); err != nil {
		return nil, err
	}
	s.source.NotifyInternalWrite(ctx, id)
	if err := s.coord.UpdateFile(ctx, id); err != nil {
		return nil, err
	}
	return s.GetNote(ctx, id)
}

// RenameNote moves a note and updates the index to reflect the new id
// only.
func (s *Service) RenameNote(ctx context.Context, from, to string) error {
	if err := s.adapter.Rename(ctx, from, to); err != nil {
		return err
	}
	if err := s.coord.Remove(ctx, from); err != nil {
		return err
	}
	s.source.NotifyInternalWrite(ctx, to)
	return s.coord.UpdateFile(ctx, to)
}

// Search delegates to the index store.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.store.Search(ctx, query, limit)
}
