package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Node is one persisted document row. The tree maps onto rows at entity
// granularity: the first two path segments ("tasks/{id}") name the row, any
// deeper segments address into the JSON document.
type Node struct {
	Path      string `gorm:"primaryKey;type:varchar(191)"`
	Doc       string `gorm:"type:text"`
	UpdatedAt time.Time
}

// SQL is a RemoteStore persisted through GORM. Change notification is
// in-process: subscribers are invoked after each committed write. Syncing
// multiple server processes would need the database's own notification
// channel on top.
type SQL struct {
	db *gorm.DB

	mu      sync.Mutex
	subs    map[int]*memSub
	nextSub int
}

// NewSQL wraps an open GORM handle. The nodes table must be migrated first.
func NewSQL(db *gorm.DB) *SQL {
	return &SQL{db: db, subs: make(map[int]*memSub)}
}

var _ RemoteStore = (*SQL)(nil)

// Get returns the value at path: a collection map for one-segment paths, a
// document (or part of one) otherwise.
func (s *SQL) Get(ctx context.Context, path string) (any, error) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil, fmt.Errorf("store: empty path")
	}

	if len(segments) == 1 {
		return s.getCollection(ctx, segments[0])
	}

	doc, err := s.getDoc(ctx, s.db, entityPath(segments))
	if err != nil {
		return nil, err
	}
	return descend(doc, segments[2:]), nil
}

// Set replaces the value at path.
func (s *SQL) Set(ctx context.Context, path string, value any) error {
	segments := splitPath(path)
	if len(segments) == 0 {
		return fmt.Errorf("store: empty path")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.setTx(ctx, tx, segments, value)
	})
	if err != nil {
		return fmt.Errorf("store: set %s: %w", path, err)
	}

	s.notify(segments)
	return nil
}

// Update applies every field in one database transaction. Fields addressing
// the same entity collapse into a single row rewrite, so a task node and its
// history entry always land together.
func (s *SQL) Update(ctx context.Context, path string, fields map[string]any) error {
	base := splitPath(path)

	byEntity := make(map[string]map[string]any)
	for key, value := range fields {
		target := append(append([]string{}, base...), splitPath(key)...)
		if len(target) < 2 {
			return fmt.Errorf("store: update path too short: %s/%s", path, key)
		}
		entity := entityPath(target)
		if byEntity[entity] == nil {
			byEntity[entity] = make(map[string]any)
		}
		byEntity[entity][strings.Join(target[2:], "/")] = value
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for entity, patch := range byEntity {
			doc, err := s.getDocLocked(ctx, tx, entity)
			if err != nil {
				return err
			}
			root, _ := doc.(map[string]any)
			if root == nil {
				root = make(map[string]any)
			}
			for sub, value := range patch {
				setIn(root, splitPath(sub), value)
			}
			if err := s.saveDoc(ctx, tx, entity, root); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: update %s: %w", path, err)
	}

	s.notify(base)
	return nil
}

// Remove deletes the node at path.
func (s *SQL) Remove(ctx context.Context, path string) error {
	segments := splitPath(path)
	if len(segments) == 0 {
		return fmt.Errorf("store: empty path")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.setTx(ctx, tx, segments, nil)
	})
	if err != nil {
		return fmt.Errorf("store: remove %s: %w", path, err)
	}

	s.notify(segments)
	return nil
}

// Transaction locks the entity row, applies fn to the addressed value and
// writes the document back before the lock is released. Concurrent callers
// on the same entity serialize on the row lock.
func (s *SQL) Transaction(ctx context.Context, path string, fn UpdateFunc) (any, error) {
	segments := splitPath(path)
	if len(segments) < 2 {
		return nil, fmt.Errorf("store: transaction path too short: %s", path)
	}
	entity := entityPath(segments)

	var committed any
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := s.getDocLocked(ctx, tx, entity)
		if err != nil {
			return err
		}

		next, err := fn(descend(doc, segments[2:]))
		if err != nil {
			return err
		}

		root, _ := doc.(map[string]any)
		if root == nil {
			root = make(map[string]any)
		}
		if len(segments) == 2 {
			if node, ok := next.(map[string]any); ok {
				root = node
			} else {
				return fmt.Errorf("store: entity value must be an object")
			}
		} else {
			setIn(root, segments[2:], next)
		}

		committed = next
		return s.saveDoc(ctx, tx, entity, root)
	})
	if err != nil {
		return nil, err
	}

	s.notify(segments)
	return committed, nil
}

// Subscribe registers fn for every committed change that intersects path.
// The current value is delivered immediately.
func (s *SQL) Subscribe(path string, fn func(value any)) (func(), error) {
	segments := splitPath(path)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = &memSub{segments: segments, fn: fn}
	s.mu.Unlock()

	value, err := s.Get(context.Background(), path)
	if err != nil {
		return nil, err
	}
	fn(value)

	cancel := func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
	return cancel, nil
}

func (s *SQL) notify(changed []string) {
	s.mu.Lock()
	subs := make([]*memSub, 0, len(s.subs))
	for _, sub := range s.subs {
		if isPrefix(sub.segments, changed) || isPrefix(changed, sub.segments) {
			subs = append(subs, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range subs {
		value, err := s.Get(context.Background(), strings.Join(sub.segments, "/"))
		if err != nil {
			continue
		}
		sub.fn(value)
	}
}

func (s *SQL) getCollection(ctx context.Context, name string) (any, error) {
	var nodes []Node
	if err := s.db.WithContext(ctx).
		Where("path LIKE ?", name+"/%").
		Find(&nodes).Error; err != nil {
		return nil, fmt.Errorf("store: get %s: %w", name, err)
	}
	if len(nodes) == 0 {
		return nil, nil
	}

	out := make(map[string]any, len(nodes))
	for _, node := range nodes {
		var doc any
		if err := json.Unmarshal([]byte(node.Doc), &doc); err != nil {
			return nil, fmt.Errorf("store: corrupt document at %s: %w", node.Path, err)
		}
		out[strings.TrimPrefix(node.Path, name+"/")] = doc
	}
	return out, nil
}

func (s *SQL) getDoc(ctx context.Context, tx *gorm.DB, entity string) (any, error) {
	var node Node
	err := tx.WithContext(ctx).Where("path = ?", entity).First(&node).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", entity, err)
	}

	var doc any
	if err := json.Unmarshal([]byte(node.Doc), &doc); err != nil {
		return nil, fmt.Errorf("store: corrupt document at %s: %w", entity, err)
	}
	return doc, nil
}

// getDocLocked reads an entity row under FOR UPDATE where the dialect
// supports it. SQLite serializes writers on its own.
func (s *SQL) getDocLocked(ctx context.Context, tx *gorm.DB, entity string) (any, error) {
	if s.db.Dialector.Name() != "sqlite" {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return s.getDoc(ctx, tx, entity)
}

func (s *SQL) saveDoc(ctx context.Context, tx *gorm.DB, entity string, doc map[string]any) error {
	if len(doc) == 0 {
		return tx.WithContext(ctx).Where("path = ?", entity).Delete(&Node{}).Error
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", entity, err)
	}

	node := Node{Path: entity, Doc: string(raw), UpdatedAt: time.Now()}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "path"}},
			DoUpdates: clause.AssignmentColumns([]string{"doc", "updated_at"}),
		}).
		Create(&node).Error
}

func (s *SQL) setTx(ctx context.Context, tx *gorm.DB, segments []string, value any) error {
	if len(segments) == 1 {
		if err := tx.WithContext(ctx).Where("path LIKE ?", segments[0]+"/%").Delete(&Node{}).Error; err != nil {
			return err
		}
		if value == nil {
			return nil
		}
		children, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("store: collection value must be an object")
		}
		for id, child := range children {
			doc, ok := child.(map[string]any)
			if !ok {
				return fmt.Errorf("store: entity value must be an object")
			}
			if err := s.saveDoc(ctx, tx, segments[0]+"/"+id, doc); err != nil {
				return err
			}
		}
		return nil
	}

	entity := entityPath(segments)
	if len(segments) == 2 {
		if value == nil {
			return tx.WithContext(ctx).Where("path = ?", entity).Delete(&Node{}).Error
		}
		doc, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("store: entity value must be an object")
		}
		return s.saveDoc(ctx, tx, entity, doc)
	}

	doc, err := s.getDocLocked(ctx, tx, entity)
	if err != nil {
		return err
	}
	root, _ := doc.(map[string]any)
	if root == nil {
		if value == nil {
			return nil
		}
		root = make(map[string]any)
	}
	setIn(root, segments[2:], value)
	return s.saveDoc(ctx, tx, entity, root)
}

func entityPath(segments []string) string {
	return segments[0] + "/" + segments[1]
}

// descend walks nested maps; nil when the path leads nowhere.
func descend(v any, segments []string) any {
	for _, seg := range segments {
		node, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v, ok = node[seg]
		if !ok {
			return nil
		}
	}
	return v
}

// setIn writes (or deletes, for nil) a nested value inside a document.
func setIn(root map[string]any, segments []string, value any) {
	parent := root
	for _, seg := range segments[:len(segments)-1] {
		child, ok := parent[seg].(map[string]any)
		if !ok {
			if value == nil {
				return
			}
			child = make(map[string]any)
			parent[seg] = child
		}
		parent = child
	}

	last := segments[len(segments)-1]
	if value == nil {
		delete(parent, last)
		return
	}
	parent[last] = value
}
