package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrNotFound はキーが存在しない場合のエラー
var ErrNotFound = errors.New("store: key not found")

// KV はKVSの基本操作を定義するインターフェース
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

var (
	_ KV = (*Store)(nil)
	_ KV = (*Guarded)(nil)
)

// Store はインメモリKVS
type Store struct {
	id string

	mu   sync.RWMutex
	data map[string][]byte
}

// New は新しいストアを作成する
func New(id string) *Store {
	return &Store{
		id:   id,
		data: make(map[string][]byte),
	}
}

// ID はストアIDを返す
func (s *Store) ID() string {
	return s.id
}

// Get はキーに対応する値を取得する
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return slices.Clone(value), nil
}

// Set はキーに値を設定する
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = slices.Clone(value)
	return nil
}

// Delete はキーを削除する
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Keys は全てのキーをソート済みで返す
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Size はデータストアのサイズを返す
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
