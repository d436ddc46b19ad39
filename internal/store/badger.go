package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/jackzampolin/primer/internal/guideline"
	"github.com/jackzampolin/primer/internal/llmcall"
)

// Key prefixes. Records are addressed as prefix + "/" + scoped parts so
// prefix iteration lists one record kind for one document.
const (
	keyPrefixDocument  = "doc/"
	keyPrefixPage      = "page/"
	keyPrefixUnit      = "unit/"
	keyPrefixIndex     = "index/"
	keyPrefixPageIndex = "pageindex/"
	keyPrefixCall      = "call/"
	keyPrefixJob       = "job/"
)

// BadgerStore is a Store backed by an embedded BadgerDB instance. Each
// record is one key holding a JSON value; badger transactions make every
// Put atomic per key.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ Store = (*BadgerStore)(nil)

// NewBadgerStore opens (or creates) a persistent store at path.
func NewBadgerStore(path string, logger *slog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening store at %s: %w", path, err)
	}
	return &BadgerStore{db: db, logger: logger.With("component", "store")}, nil
}

// NewInMemoryStore opens a store with no disk persistence. Used by tests
// and by dry runs.
func NewInMemoryStore(logger *slog.Logger) (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening in-memory store: %w", err)
	}
	return &BadgerStore{db: db, logger: logger.With("component", "store")}, nil
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) put(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", key, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (s *BadgerStore) get(key string, out any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	return nil
}

func (s *BadgerStore) delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// listPrefix collects every value under prefix, decoding each into a fresh
// element via decode.
func (s *BadgerStore) listPrefix(prefix string, decode func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				return decode(val)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func documentKey(id string) string { return keyPrefixDocument + id }

func pageKey(documentID string, pageNumber int) string {
	return fmt.Sprintf("%s%s/%06d", keyPrefixPage, documentID, pageNumber)
}

func unitKey(documentID, topicKey, subtopicKey string) string {
	return keyPrefixUnit + documentID + "/" + topicKey + "/" + subtopicKey
}

func indexKey(documentID string) string     { return keyPrefixIndex + documentID }
func pageIndexKey(documentID string) string { return keyPrefixPageIndex + documentID }

func callKey(documentID, callID string) string {
	return keyPrefixCall + documentID + "/" + callID
}

func jobKey(id string) string { return keyPrefixJob + id }

// PutDocument writes a document record.
func (s *BadgerStore) PutDocument(_ context.Context, doc *Document) error {
	return s.put(documentKey(doc.ID), doc)
}

// GetDocument reads one document by ID.
func (s *BadgerStore) GetDocument(_ context.Context, id string) (*Document, error) {
	var doc Document
	if err := s.get(documentKey(id), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments returns all documents sorted by creation time.
func (s *BadgerStore) ListDocuments(_ context.Context) ([]*Document, error) {
	var docs []*Document
	err := s.listPrefix(keyPrefixDocument, func(val []byte) error {
		var doc Document
		if err := json.Unmarshal(val, &doc); err != nil {
			return err
		}
		docs = append(docs, &doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})
	return docs, nil
}

// PutPage writes a page record.
func (s *BadgerStore) PutPage(_ context.Context, page *PageRecord) error {
	return s.put(pageKey(page.DocumentID, page.PageNumber), page)
}

// GetPage reads one page of a document.
func (s *BadgerStore) GetPage(_ context.Context, documentID string, pageNumber int) (*PageRecord, error) {
	var page PageRecord
	if err := s.get(pageKey(documentID, pageNumber), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ListPages returns a document's pages in page order. Page keys embed a
// zero-padded page number so iteration order is page order.
func (s *BadgerStore) ListPages(_ context.Context, documentID string) ([]*PageRecord, error) {
	var pages []*PageRecord
	err := s.listPrefix(keyPrefixPage+documentID+"/", func(val []byte) error {
		var page PageRecord
		if err := json.Unmarshal(val, &page); err != nil {
			return err
		}
		pages = append(pages, &page)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing pages for %s: %w", documentID, err)
	}
	return pages, nil
}

// PutUnit writes a unit record.
func (s *BadgerStore) PutUnit(_ context.Context, unit *guideline.Unit) error {
	return s.put(unitKey(unit.DocumentID, unit.TopicKey, unit.SubtopicKey), unit)
}

// GetUnit reads one unit by its composite key.
func (s *BadgerStore) GetUnit(_ context.Context, documentID, topicKey, subtopicKey string) (*guideline.Unit, error) {
	var unit guideline.Unit
	if err := s.get(unitKey(documentID, topicKey, subtopicKey), &unit); err != nil {
		return nil, err
	}
	return &unit, nil
}

// ListUnits returns all units for a document sorted by first source page,
// then key.
func (s *BadgerStore) ListUnits(_ context.Context, documentID string) ([]*guideline.Unit, error) {
	var units []*guideline.Unit
	err := s.listPrefix(keyPrefixUnit+documentID+"/", func(val []byte) error {
		var unit guideline.Unit
		if err := json.Unmarshal(val, &unit); err != nil {
			return err
		}
		units = append(units, &unit)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing units for %s: %w", documentID, err)
	}
	sort.Slice(units, func(i, j int) bool {
		if units[i].SourcePageStart != units[j].SourcePageStart {
			return units[i].SourcePageStart < units[j].SourcePageStart
		}
		return units[i].Key() < units[j].Key()
	})
	return units, nil
}

// DeleteUnit removes one unit. Used by deduplication after merging.
func (s *BadgerStore) DeleteUnit(_ context.Context, documentID, topicKey, subtopicKey string) error {
	return s.delete(unitKey(documentID, topicKey, subtopicKey))
}

// PutIndex writes the hierarchical index for a document.
func (s *BadgerStore) PutIndex(_ context.Context, index *guideline.Index) error {
	return s.put(indexKey(index.DocumentID), index)
}

// GetIndex reads the hierarchical index for a document.
func (s *BadgerStore) GetIndex(_ context.Context, documentID string) (*guideline.Index, error) {
	var index guideline.Index
	if err := s.get(indexKey(documentID), &index); err != nil {
		return nil, err
	}
	return &index, nil
}

// PutPageIndex writes the page-to-unit assignment map for a document.
func (s *BadgerStore) PutPageIndex(_ context.Context, documentID string, pi *guideline.PageIndex) error {
	return s.put(pageIndexKey(documentID), pi)
}

// GetPageIndex reads the page-to-unit assignment map for a document.
func (s *BadgerStore) GetPageIndex(_ context.Context, documentID string) (*guideline.PageIndex, error) {
	var pi guideline.PageIndex
	if err := s.get(pageIndexKey(documentID), &pi); err != nil {
		return nil, err
	}
	return &pi, nil
}

// PutCall writes an LLM call record.
func (s *BadgerStore) PutCall(_ context.Context, call *llmcall.Call) error {
	return s.put(callKey(call.DocumentID, call.ID), call)
}

// ListCalls returns all call records for a document.
func (s *BadgerStore) ListCalls(_ context.Context, documentID string) ([]*llmcall.Call, error) {
	var calls []*llmcall.Call
	err := s.listPrefix(keyPrefixCall+documentID+"/", func(val []byte) error {
		var call llmcall.Call
		if err := json.Unmarshal(val, &call); err != nil {
			return err
		}
		calls = append(calls, &call)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing calls for %s: %w", documentID, err)
	}
	sort.Slice(calls, func(i, j int) bool {
		return calls[i].Timestamp.Before(calls[j].Timestamp)
	})
	return calls, nil
}

// PutJob writes a job record.
func (s *BadgerStore) PutJob(_ context.Context, job *JobRecord) error {
	return s.put(jobKey(job.ID), job)
}

// GetJob reads one job by ID.
func (s *BadgerStore) GetJob(_ context.Context, id string) (*JobRecord, error) {
	var job JobRecord
	if err := s.get(jobKey(id), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs returns all job records sorted by creation time, newest first.
func (s *BadgerStore) ListJobs(_ context.Context) ([]*JobRecord, error) {
	var jobs []*JobRecord
	err := s.listPrefix(keyPrefixJob, func(val []byte) error {
		var job JobRecord
		if err := json.Unmarshal(val, &job); err != nil {
			return err
		}
		jobs = append(jobs, &job)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs, nil
}
