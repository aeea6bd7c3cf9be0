package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sykell/bookmarks/internal/db"
)

// fakeStore is an in-memory Store used by the importer tests.
type fakeStore struct {
	mu sync.Mutex

	links   []db.Link
	tags    []db.Tag
	pairs   []db.LinkTag
	imports map[string]*db.Import
	errors  []db.ImportError

	nextLinkID uint
	nextTagID  uint
	nextImport int

	lookupCalls int
	lookupKeys  [][]string
	createTags  int
	finishCalls int

	lookupErr       error
	findTagsErr     error
	createImportErr error
	finishErr       error
	linkTagsErr     error
	insertLinksErr  error
	// failURLs makes single inserts fail for these URL keys.
	failURLs map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{imports: make(map[string]*db.Import)}
}

func (f *fakeStore) seedLink(userID uint, url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextLinkID++
	f.links = append(f.links, db.Link{ID: f.nextLinkID, UserID: userID, URL: url, URLKey: URLKey(url), Title: url})
}

func (f *fakeStore) seedTag(userID uint, name string) uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextTagID++
	f.tags = append(f.tags, db.Tag{ID: f.nextTagID, UserID: userID, Name: name, NameKey: TagKey(name)})
	return f.nextTagID
}

func (f *fakeStore) ExistingURLKeys(_ context.Context, userID uint, keys []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookupCalls++
	f.lookupKeys = append(f.lookupKeys, append([]string(nil), keys...))
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}

	wanted := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
	}
	var found []string
	for _, l := range f.links {
		if l.UserID != userID {
			continue
		}
		if _, ok := wanted[l.URLKey]; ok {
			found = append(found, l.URLKey)
		}
	}
	return found, nil
}

func (f *fakeStore) FindTags(_ context.Context, userID uint, nameKeys []string) ([]db.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findTagsErr != nil {
		return nil, f.findTagsErr
	}
	wanted := make(map[string]struct{}, len(nameKeys))
	for _, k := range nameKeys {
		wanted[k] = struct{}{}
	}
	var found []db.Tag
	for _, t := range f.tags {
		if t.UserID != userID {
			continue
		}
		if _, ok := wanted[t.NameKey]; ok {
			found = append(found, t)
		}
	}
	return found, nil
}

func (f *fakeStore) CreateTags(_ context.Context, tags []db.Tag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createTags++
	for _, t := range tags {
		exists := false
		for _, existing := range f.tags {
			if existing.UserID == t.UserID && existing.NameKey == t.NameKey {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		f.nextTagID++
		t.ID = f.nextTagID
		f.tags = append(f.tags, t)
	}
	return nil
}

func (f *fakeStore) CreateImport(_ context.Context, imp *db.Import) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createImportErr != nil {
		return f.createImportErr
	}
	f.nextImport++
	imp.ID = fmt.Sprintf("import-%d", f.nextImport)
	stored := *imp
	f.imports[imp.ID] = &stored
	return nil
}

func (f *fakeStore) FinishImport(_ context.Context, imp *db.Import) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finishCalls++
	if f.finishErr != nil {
		return f.finishErr
	}
	stored := *imp
	f.imports[imp.ID] = &stored
	return nil
}

func (f *fakeStore) RecordImportErrors(_ context.Context, errs []db.ImportError) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errs...)
	return nil
}

func (f *fakeStore) InsertLinks(_ context.Context, links []db.Link) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertLinksErr != nil {
		return f.insertLinksErr
	}
	for i := range links {
		if err := f.checkInsert(&links[i]); err != nil {
			return err
		}
	}
	for i := range links {
		f.nextLinkID++
		links[i].ID = f.nextLinkID
		f.links = append(f.links, links[i])
	}
	return nil
}

func (f *fakeStore) InsertLink(_ context.Context, link *db.Link) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkInsert(link); err != nil {
		return err
	}
	f.nextLinkID++
	link.ID = f.nextLinkID
	f.links = append(f.links, *link)
	return nil
}

func (f *fakeStore) checkInsert(link *db.Link) error {
	if err, ok := f.failURLs[link.URLKey]; ok {
		return err
	}
	for _, l := range f.links {
		if l.UserID == link.UserID && l.URLKey == link.URLKey {
			return ErrDuplicate
		}
	}
	return nil
}

func (f *fakeStore) LinkTags(_ context.Context, pairs []db.LinkTag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.linkTagsErr != nil {
		return f.linkTagsErr
	}
	f.pairs = append(f.pairs, pairs...)
	return nil
}

func (f *fakeStore) linksFor(userID uint) []db.Link {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.Link
	for _, l := range f.links {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out
}

func (f *fakeStore) tagsFor(userID uint) []db.Tag {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.Tag
	for _, t := range f.tags {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

type recordingNotifier struct {
	mu  sync.Mutex
	ids []uint
	err error
}

func (n *recordingNotifier) NotifyNewLink(id uint) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, id)
	return n.err
}

var errStoreDown = errors.New("store unavailable")

func strPtr(s string) *string { return &s }

func rawRow(n int, values map[string]string) RawRow {
	row := RawRow{RowNumber: n, Values: make(map[string]*string, len(values))}
	for k, v := range values {
		row.Values[k] = strPtr(v)
	}
	return row
}
