package store

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nymphbox/oxn/internal/table"
)

const trieFileName = "trie.gob"

func init() {
	// Frame cells hold interface{} values from Prometheus/Jaeger responses
	// and labeling; gob needs every concrete type registered up front to
	// encode/decode them through the Columns map[string][]any field.
	gob.Register("")
	gob.Register(float64(0))
	gob.Register(int64(0))
	gob.Register(int(0))
	gob.Register(false)
	gob.Register(time.Time{})
}

// frameGob is the gob-encodable mirror of table.Frame (Frame's internal
// fields aren't exported, so Store marshals through this instead).
type frameGob struct {
	Index   []time.Time
	Columns map[string][]any
	Order   []string
}

// Metadata is the free-form annotation payload annotate() attaches to a
// stored key, mirroring HDFStore.get_storer(key).attrs.metadata.
type Metadata map[string]interface{}

// Store persists table.Frame values under a directory, one gob file per
// key plus a shared Trie for prefix queries — the filesystem-backed
// equivalent of the original's single HDF5 file.
type Store struct {
	dir  string
	trie *Trie
	meta map[string]Metadata
}

// Open loads (or creates) a Store rooted at dir, deserializing any
// previously-persisted trie the way Trie.deserialize does.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("store: create %s: %w", dir, err)
	}
	s := &Store{dir: dir, trie: NewTrie(), meta: make(map[string]Metadata)}

	triePath := filepath.Join(dir, trieFileName)
	if data, err := os.ReadFile(triePath); err == nil {
		var root node
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&root); err != nil {
			return nil, fmt.Errorf("store: decode trie: %w", err)
		}
		s.trie.Root = &root
	}
	return s, nil
}

func (s *Store) keyPath(key string) string {
	return filepath.Join(s.dir, strings.ReplaceAll(key, "/", "__")+".gob")
}

func (s *Store) persistTrie() error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s.trie.Root); err != nil {
		return fmt.Errorf("store: encode trie: %w", err)
	}
	return os.WriteFile(filepath.Join(s.dir, trieFileName), buf.Bytes(), 0644)
}

// WriteFrame persists frame under the key built from experimentKey,
// runKey and responseKey, matching write_dataframe.
func (s *Store) WriteFrame(experimentKey, runKey, responseKey string, frame *table.Frame) error {
	key := ConstructKey(experimentKey, runKey, responseKey)

	g := frameGob{Index: frame.Index, Columns: frame.Columns, Order: frame.ColumnNames()}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(g); err != nil {
		return fmt.Errorf("store: encode frame for %s: %w", key, err)
	}
	if err := os.WriteFile(s.keyPath(key), buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("store: write %s: %w", key, err)
	}

	s.trie.Insert(key)
	return s.persistTrie()
}

// GetFrame retrieves the Frame stored at key, matching get_dataframe:
// returns (nil, nil) if the trie has no matching key at all.
func (s *Store) GetFrame(key string) (*table.Frame, error) {
	if len(s.trie.Query(key)) == 0 {
		return nil, nil
	}
	data, err := os.ReadFile(s.keyPath(key))
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", key, err)
	}
	var g frameGob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&g); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", key, err)
	}

	frame := table.New()
	for _, col := range g.Order {
		frame.AddColumn(col)
	}
	for i, t := range g.Index {
		row := make(map[string]any, len(g.Columns))
		for col, vals := range g.Columns {
			if i < len(vals) {
				row[col] = vals[i]
			}
		}
		frame.AppendRow(t, row)
	}
	return frame, nil
}

// Annotate attaches metadata to a stored key, matching annotate().
func (s *Store) Annotate(key string, metadata Metadata) {
	s.meta[key] = metadata
}

// RemoveFrame deletes the file backing key, matching remove_dataframe.
func (s *Store) RemoveFrame(key string) error {
	if err := os.Remove(s.keyPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: remove %s: %w", key, err)
	}
	return nil
}

// ConsolidateRuns concatenates every run's Frame for responseVariable
// under experimentKey into one Frame, matching consolidate_runs.
func (s *Store) ConsolidateRuns(experimentKey, responseVariable string) (*table.Frame, error) {
	keys := s.trie.Query(experimentKey)
	var frames []*table.Frame
	for _, key := range keys {
		if !strings.HasSuffix(key, "/"+responseVariable) {
			continue
		}
		f, err := s.GetFrame(key)
		if err != nil {
			return nil, err
		}
		if f != nil {
			frames = append(frames, f)
		}
	}
	if len(frames) == 0 {
		return nil, nil
	}
	return table.Concat(frames...), nil
}

// ListKeysForExperiment returns every key under experimentKey, matching
// list_keys_for_experiment.
func (s *Store) ListKeysForExperiment(experimentKey string) []string {
	return s.trie.Query(experimentKey)
}

// ListKeysForRun returns every key under experimentKey+experimentRun,
// matching list_keys_for_run's string-concatenation (not path-joined)
// prefix.
func (s *Store) ListKeysForRun(experimentKey, experimentRun string) []string {
	return s.trie.Query(experimentKey + experimentRun)
}

// ListAllKeys returns every key ever inserted, matching list_all_dataframes.
func (s *Store) ListAllKeys() []string {
	return s.trie.Query("")
}
