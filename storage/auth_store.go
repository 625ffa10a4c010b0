package storage

import (
	"bytes"
	"crypto"
	"errors"
	"fmt"
	"hash"
	"log/slog"
	"slices"
	"sync"

	"github.com/stratadb/stratadb/keyvaluedb"
	"github.com/stratadb/stratadb/tree/mkl"
	"github.com/stratadb/stratadb/types"
)

var (
	ErrDatabaseExists   = errors.New("database already exists")
	ErrDatabaseNotFound = errors.New("database not found")
	ErrCollectionExists = errors.New("collection already exists")
	ErrInvalidMutation  = errors.New("invalid mutation")
)

type (
	/*
		AuthStore is the authenticated key/value store of the node. It has a
		single logical writer - the commit path of the application state
		machine. Mutations are staged into an overlay with the Apply* methods
		and folded into the durable state by Commit, which recomputes the
		Merkle root over all live entries. Identical entry sets produce
		identical roots on every replica.
	*/
	AuthStore struct {
		mutex sync.RWMutex
		db    keyvaluedb.KeyValueDB

		// committed entries, logical key -> value
		live map[string][]byte
		// writes staged by the in-flight block, nil value marks a delete
		dirty map[string][]byte

		blockState    BlockState
		currentHeight uint64
		currentTime   uint64

		hashAlgorithm crypto.Hash
		log           *slog.Logger
	}

	Observability interface {
		Logger() *slog.Logger
	}
)

/*
New opens the authenticated store on top of "db". Previously committed
entries and the last block state are loaded back so the root hash reported
after a restart equals the one reported before it.
*/
func New(db keyvaluedb.KeyValueDB, obs Observability) (*AuthStore, error) {
	s := &AuthStore{
		db:            db,
		live:          map[string][]byte{},
		dirty:         map[string][]byte{},
		hashAlgorithm: crypto.SHA256,
		log:           obs.Logger(),
	}
	if _, err := db.Read(blockStateKey, &s.blockState); err != nil {
		return nil, fmt.Errorf("reading block state: %w", err)
	}
	if err := s.loadEntries(); err != nil {
		return nil, fmt.Errorf("loading state entries: %w", err)
	}
	return s, nil
}

func (s *AuthStore) loadEntries() (rerr error) {
	it := s.db.Find([]byte(entryPrefix))
	defer func() { rerr = errors.Join(rerr, it.Close()) }()
	for ; it.Valid() && bytes.HasPrefix(it.Key(), []byte(entryPrefix)); it.Next() {
		var value []byte
		if err := it.Value(&value); err != nil {
			return err
		}
		s.live[string(it.Key()[len(entryPrefix):])] = value
	}
	return nil
}

// GetLastBlockState reports the height and root hash of the last commit.
func (s *AuthStore) GetLastBlockState() BlockState {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.blockState
}

// BeginBlock records the in-flight block's height and timestamp. Must be
// called before any Apply* calls of the block.
func (s *AuthStore) BeginBlock(height, blockTime uint64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.currentHeight = height
	s.currentTime = blockTime
}

/*
ApplyMutation stages a key/value mutation of "submitter". Returns the gas
used and the number of bytes written. Gas is priced flat per byte written,
deletes cost one gas per key.
*/
func (s *AuthStore) ApplyMutation(submitter types.Address, txID types.TxID, m *types.Mutation) (gasUsed uint64, bytesWritten uint64, err error) {
	if !IsValidMutation(m) {
		return 0, 0, fmt.Errorf("%w: tx %s of %s", ErrInvalidMutation, txID, submitter)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, pair := range m.Pairs {
		key := kvEntryKey(m.Namespace, pair.Key)
		switch pair.Action {
		case types.InsertKV:
			s.dirty[key] = pair.Value
			bytesWritten += uint64(len(key) + len(pair.Value))
		case types.DeleteKV:
			s.dirty[key] = nil
			gasUsed++
		}
	}
	gasUsed += bytesWritten
	return gasUsed, bytesWritten, nil
}

// ApplyQuerySession stages the settlement of a query session, crediting the
// serving node.
func (s *AuthStore) ApplyQuerySession(client, node types.Address, txID types.TxID, info *types.QuerySessionInfo) error {
	if info == nil {
		return fmt.Errorf("query session info is nil, tx %s", txID)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	key := creditEntryKey(node)
	credit := &CreditRecord{}
	if raw, ok := s.view(key); ok {
		if err := types.Cbor.Unmarshal(raw, credit); err != nil {
			return fmt.Errorf("decoding credit record of %s: %w", node, err)
		}
	}
	credit.Sessions++
	credit.Queries += info.QueryCount
	credit.Units += info.BilledUnits

	raw, err := types.Cbor.Marshal(credit)
	if err != nil {
		return fmt.Errorf("encoding credit record: %w", err)
	}
	s.dirty[key] = raw
	s.log.Debug(fmt.Sprintf("credited node %s for session %d (client %s)", node, info.ID, client))
	return nil
}

// ApplyDatabase stages a database schema mutation of "sender".
func (s *AuthStore) ApplyDatabase(sender types.Address, nonce uint64, txID types.TxID, dm *types.DatabaseMutation) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	switch dm.Action {
	case types.CreateDatabase:
		addr := DeriveDatabaseAddress(sender, nonce)
		key := dbEntryKey(addr)
		if _, ok := s.view(key); ok {
			return fmt.Errorf("%w: %s", ErrDatabaseExists, addr)
		}
		return s.putDatabase(key, &DatabaseRecord{
			Sender:      sender,
			Nonce:       nonce,
			TxID:        txID,
			Collections: dm.Collections,
		})
	case types.AddCollection:
		key := dbEntryKey(dm.DbAddress)
		raw, ok := s.view(key)
		if !ok {
			return fmt.Errorf("%w: %s", ErrDatabaseNotFound, dm.DbAddress)
		}
		record := &DatabaseRecord{}
		if err := types.Cbor.Unmarshal(raw, record); err != nil {
			return fmt.Errorf("decoding database record of %s: %w", dm.DbAddress, err)
		}
		for _, col := range dm.Collections {
			if slices.ContainsFunc(record.Collections, func(c *types.CollectionDef) bool { return c.Name == col.Name }) {
				return fmt.Errorf("%w: %s in %s", ErrCollectionExists, col.Name, dm.DbAddress)
			}
			record.Collections = append(record.Collections, col)
		}
		return s.putDatabase(key, record)
	default:
		return fmt.Errorf("unknown database action %s, tx %s", dm.Action, txID)
	}
}

func (s *AuthStore) putDatabase(key string, record *DatabaseRecord) error {
	raw, err := types.Cbor.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding database record: %w", err)
	}
	s.dirty[key] = raw
	return nil
}

/*
Commit folds the staged writes into the live state, persists them together
with the new block state and returns the recomputed root hash. Runs to
completion or not at all - the durable write is a single transaction.
*/
func (s *AuthStore) Commit() ([]byte, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	tx, err := s.db.StartTx()
	if err != nil {
		return nil, fmt.Errorf("starting commit tx: %w", err)
	}
	for key, value := range s.dirty {
		if value == nil {
			delete(s.live, key)
			if err := tx.Delete([]byte(entryPrefix + key)); err != nil {
				return nil, errors.Join(fmt.Errorf("deleting entry: %w", err), tx.Rollback())
			}
			continue
		}
		s.live[key] = value
		if err := tx.Write([]byte(entryPrefix+key), value); err != nil {
			return nil, errors.Join(fmt.Errorf("writing entry: %w", err), tx.Rollback())
		}
	}

	root, err := s.calculateRoot()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("calculating root: %w", err), tx.Rollback())
	}
	s.blockState = BlockState{
		BlockHeight: s.currentHeight,
		BlockTime:   s.currentTime,
		RootHash:    root,
	}
	if err := tx.Write(blockStateKey, &s.blockState); err != nil {
		return nil, errors.Join(fmt.Errorf("writing block state: %w", err), tx.Rollback())
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing block %d: %w", s.currentHeight, err)
	}
	s.dirty = map[string][]byte{}
	return root, nil
}

// RootHash returns the root hash of the last commit without committing.
func (s *AuthStore) RootHash() []byte {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.blockState.RootHash
}

// GetValue reads a committed key/value entry; staged but uncommitted writes
// are not visible.
func (s *AuthStore) GetValue(namespace, key []byte) ([]byte, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	value, ok := s.live[kvEntryKey(namespace, key)]
	return value, ok
}

// GetDatabase reads a committed database record.
func (s *AuthStore) GetDatabase(address types.Address) (*DatabaseRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	raw, ok := s.live[dbEntryKey(address)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, address)
	}
	record := &DatabaseRecord{}
	if err := types.Cbor.Unmarshal(raw, record); err != nil {
		return nil, fmt.Errorf("decoding database record of %s: %w", address, err)
	}
	return record, nil
}

// GetCredit reads the committed credit record of a serving node, the zero
// record when the node has no settled sessions.
func (s *AuthStore) GetCredit(node types.Address) (*CreditRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	credit := &CreditRecord{}
	raw, ok := s.live[creditEntryKey(node)]
	if !ok {
		return credit, nil
	}
	if err := types.Cbor.Unmarshal(raw, credit); err != nil {
		return nil, fmt.Errorf("decoding credit record of %s: %w", node, err)
	}
	return credit, nil
}

// view resolves a logical key against the staged overlay first, then the
// committed state. Callers must hold the mutex.
func (s *AuthStore) view(key string) ([]byte, bool) {
	if value, ok := s.dirty[key]; ok {
		return value, value != nil
	}
	value, ok := s.live[key]
	return value, ok
}

func (s *AuthStore) calculateRoot() ([]byte, error) {
	keys := make([]string, 0, len(s.live))
	for key := range s.live {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	leaves := make([]mkl.LeafData, len(keys))
	for i, key := range keys {
		leaves[i] = mkl.LeafData{Index: []byte(key), Data: entryData(s.live[key])}
	}
	tree, err := mkl.New(s.hashAlgorithm, leaves)
	if err != nil {
		return nil, err
	}
	return tree.RootHash(), nil
}

type entryData []byte

func (d entryData) AddToHasher(hasher hash.Hash) {
	hasher.Write(d)
}
