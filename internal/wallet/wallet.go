// Package wallet implements the C1 wallet contract (spec §4.1): a
// categorised encrypted key-value store with WQL tag search, consumed by
// the anoncreds engine for every issuer/holder artifact and by the
// connection/issuance/presentation state machines for nothing else (they
// only ever go through the anoncreds engine).
//
// The underlying storage driver is explicitly out of core scope (spec §1);
// this package only needs "any key-value engine with secondary indices",
// so the reference implementation here is a process-local map guarded by a
// mutex, following the same GetState/SetState/DeleteState/prefix-iteration
// shape as the teacher's identity-registry backend
// (core/identity_verification.go's stateBackend), generalised from a single
// namespace to per-category namespaces with per-record tag indices.
package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"

	"aries-agent-core/internal/agenterr"
)

// Record is one stored value plus its plaintext tags (spec §3: categorised
// encrypted KV; tags are always plaintext-searchable in this core, matching
// the "~" tag-name convention WQL uses for plaintext tags).
type Record struct {
	Category Category
	Name     string
	Value    string
	Tags     map[string]string
}

// Wallet is the C1 contract.
type Wallet interface {
	Add(category Category, name, value string, tags map[string]string) error
	Get(category Category, name string) (Record, error)
	UpdateValue(category Category, name, newValue string) error
	UpdateTags(category Category, name string, newTags map[string]string) error
	AddTags(category Category, name string, tags map[string]string) error
	DeleteTags(category Category, name string, keys []string) error
	Delete(category Category, name string) error
	Search(category Category, wql []byte) ([]Record, error)
	Export(path, backupKey string) error
	Import(path, backupKey string) error
}

type memWallet struct {
	mu      sync.RWMutex
	records map[Category]map[string]Record
	logger  *log.Logger
}

// New returns the in-memory reference Wallet implementation.
func New(logger *log.Logger) Wallet {
	if logger == nil {
		logger = log.New()
	}
	return &memWallet{records: map[Category]map[string]Record{}, logger: logger}
}

func (w *memWallet) checkCategory(op string, category Category) error {
	if !category.IsKnown() {
		return agenterr.New(agenterr.InvalidInput, op, fmt.Sprintf("unknown category %q", category))
	}
	return nil
}

func (w *memWallet) Add(category Category, name, value string, tags map[string]string) error {
	if err := w.checkCategory("Add", category); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	bucket := w.bucket(category)
	if _, exists := bucket[name]; exists {
		return agenterr.New(agenterr.Duplicate, "Add", fmt.Sprintf("%s/%s already exists", category, name))
	}
	cp := copyTags(tags)
	bucket[name] = Record{Category: category, Name: name, Value: value, Tags: cp}
	w.logger.WithFields(log.Fields{"category": category, "name": name}).Debug("wallet: record added")
	return nil
}

func (w *memWallet) Get(category Category, name string) (Record, error) {
	if err := w.checkCategory("Get", category); err != nil {
		return Record{}, err
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	rec, ok := w.bucket(category)[name]
	if !ok {
		return Record{}, agenterr.New(agenterr.NotFound, "Get", fmt.Sprintf("%s/%s", category, name))
	}
	return rec.clone(), nil
}

func (w *memWallet) UpdateValue(category Category, name, newValue string) error {
	if err := w.checkCategory("UpdateValue", category); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	bucket := w.bucket(category)
	rec, ok := bucket[name]
	if !ok {
		return agenterr.New(agenterr.NotFound, "UpdateValue", fmt.Sprintf("%s/%s", category, name))
	}
	rec.Value = newValue
	bucket[name] = rec
	return nil
}

func (w *memWallet) UpdateTags(category Category, name string, newTags map[string]string) error {
	if err := w.checkCategory("UpdateTags", category); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	bucket := w.bucket(category)
	rec, ok := bucket[name]
	if !ok {
		return agenterr.New(agenterr.NotFound, "UpdateTags", fmt.Sprintf("%s/%s", category, name))
	}
	rec.Tags = copyTags(newTags)
	bucket[name] = rec
	return nil
}

func (w *memWallet) AddTags(category Category, name string, tags map[string]string) error {
	if err := w.checkCategory("AddTags", category); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	bucket := w.bucket(category)
	rec, ok := bucket[name]
	if !ok {
		return agenterr.New(agenterr.NotFound, "AddTags", fmt.Sprintf("%s/%s", category, name))
	}
	if rec.Tags == nil {
		rec.Tags = map[string]string{}
	}
	for k, v := range tags {
		rec.Tags[k] = v
	}
	bucket[name] = rec
	return nil
}

func (w *memWallet) DeleteTags(category Category, name string, keys []string) error {
	if err := w.checkCategory("DeleteTags", category); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	bucket := w.bucket(category)
	rec, ok := bucket[name]
	if !ok {
		return agenterr.New(agenterr.NotFound, "DeleteTags", fmt.Sprintf("%s/%s", category, name))
	}
	for _, k := range keys {
		delete(rec.Tags, k)
	}
	bucket[name] = rec
	return nil
}

func (w *memWallet) Delete(category Category, name string) error {
	if err := w.checkCategory("Delete", category); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	bucket := w.bucket(category)
	if _, ok := bucket[name]; !ok {
		return agenterr.New(agenterr.NotFound, "Delete", fmt.Sprintf("%s/%s", category, name))
	}
	delete(bucket, name)
	return nil
}

func (w *memWallet) Search(category Category, wql []byte) ([]Record, error) {
	if err := w.checkCategory("Search", category); err != nil {
		return nil, err
	}
	q, err := ParseWQL(wql)
	if err != nil {
		return nil, err
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []Record
	for _, rec := range w.bucket(category) {
		if q.Match(rec.Tags) {
			out = append(out, rec.clone())
		}
	}
	return out, nil
}

func (w *memWallet) bucket(category Category) map[string]Record {
	b, ok := w.records[category]
	if !ok {
		b = map[string]Record{}
		w.records[category] = b
	}
	return b
}

// backupFile is the on-disk shape written by Export/read by Import: every
// category's records, AES-256-GCM sealed under a key derived from
// backupKey (spec §4.1: export(path, backup_key)/import(path, backup_key)).
type backupFile struct {
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

func (w *memWallet) Export(path, backupKey string) error {
	w.mu.RLock()
	plain, err := json.Marshal(w.records)
	w.mu.RUnlock()
	if err != nil {
		return agenterr.Wrap(agenterr.InvalidInput, "Export", "marshal records", err)
	}
	sealed, nonce, err := sealWithKey(backupKey, plain)
	if err != nil {
		return agenterr.Wrap(agenterr.CryptoFailure, "Export", "seal backup", err)
	}
	out, err := json.Marshal(backupFile{Nonce: nonce, Ciphertext: sealed})
	if err != nil {
		return agenterr.Wrap(agenterr.InvalidInput, "Export", "marshal backup file", err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return agenterr.Wrap(agenterr.LedgerUnavailable, "Export", "write backup file", err)
	}
	return nil
}

func (w *memWallet) Import(path, backupKey string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return agenterr.Wrap(agenterr.NotFound, "Import", "read backup file", err)
	}
	var bf backupFile
	if err := json.Unmarshal(raw, &bf); err != nil {
		return agenterr.Wrap(agenterr.InvalidInput, "Import", "unmarshal backup file", err)
	}
	plain, err := openWithKey(backupKey, bf.Nonce, bf.Ciphertext)
	if err != nil {
		return agenterr.Wrap(agenterr.CryptoFailure, "Import", "open backup: wrong key or corrupt file", err)
	}
	var records map[Category]map[string]Record
	if err := json.Unmarshal(plain, &records); err != nil {
		return agenterr.Wrap(agenterr.InvalidInput, "Import", "unmarshal records", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records = records
	return nil
}

func sealWithKey(backupKey string, plain []byte) (ciphertext, nonce []byte, err error) {
	block, err := aes.NewCipher(deriveKey(backupKey))
	if err != nil {
		return nil, nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(crand.Reader, nonce); err != nil {
		return nil, nil, err
	}
	return gcm.Seal(nil, nonce, plain, nil), nonce, nil
}

func openWithKey(backupKey string, nonce, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(deriveKey(backupKey))
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return gcm.Open(nil, nonce, ciphertext, nil)
}

func deriveKey(backupKey string) []byte {
	sum := sha256.Sum256([]byte(backupKey))
	return sum[:]
}

func copyTags(tags map[string]string) map[string]string {
	cp := make(map[string]string, len(tags))
	for k, v := range tags {
		cp[k] = v
	}
	return cp
}

func (r Record) clone() Record {
	return Record{Category: r.Category, Name: r.Name, Value: r.Value, Tags: copyTags(r.Tags)}
}
