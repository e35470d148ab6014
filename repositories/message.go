package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
)

const (
	logPrefix = "log:"
	idxPrefix = "idx:"
)

// Compile-time check that the store satisfies the contract.
var _ contract.IMessageStore = (*MessageStore)(nil)

// MessageStore keeps the ordered message log in an in-memory Badger instance.
// Keys under "log:" are 19-digit zero-padded sequence numbers, so iterating
// the prefix yields insertion order. Keys under "idx:" map a message id to
// its log key for direct lookup on delete. Both keys for one message are
// written and removed inside a single transaction, so Append, List and
// Remove are atomic with respect to each other.
//
// Nothing is ever flushed to disk: losing the log on restart is the intended
// behavior.
type MessageStore struct {
	db  *badger.DB
	log *slog.Logger
	seq atomic.Uint64
}

func NewMessageStore(log *slog.Logger) (*MessageStore, error) {
	db, err := badger.Open(badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, fmt.Errorf("message store opening failed: %w", err)
	}
	return &MessageStore{db: db, log: log}, nil
}

func (s *MessageStore) Close() error {
	return s.db.Close()
}

// Append creates a Message with a fresh unique id and puts it at the end of
// the log. Empty content is accepted as is.
func (s *MessageStore) Append(authorID, content string) (domain.Message, error) {
	message := domain.NewMessage(authorID, content)
	value, err := json.Marshal(message)
	if err != nil {
		return domain.Message{}, err
	}

	logKey := s.nextLogKey()
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(logKey, value); err != nil {
			return err
		}
		return txn.Set([]byte(idxPrefix+message.ID), logKey)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// List returns a point-in-time snapshot of the log in insertion order.
// The read runs in its own transaction, so a concurrent Append or Remove
// never produces a torn view.
func (s *MessageStore) List() ([]domain.Message, error) {
	messages := make([]domain.Message, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(logPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var message domain.Message
				if err := json.Unmarshal(value, &message); err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return messages, err
}

// Remove deletes a message only when requesterID matches its author.
// Unknown ids report errors.ErrNotFound, authorship mismatches report
// errors.ErrUnauthorized and leave the log untouched.
func (s *MessageStore) Remove(id, requesterID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		idxKey := []byte(idxPrefix + id)
		item, err := txn.Get(idxKey)
		if err == badger.ErrKeyNotFound {
			return errors.ErrNotFound
		}
		if err != nil {
			return err
		}

		logKey, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err = txn.Get(logKey)
		if err != nil {
			return err
		}

		var message domain.Message
		err = item.Value(func(value []byte) error {
			return json.Unmarshal(value, &message)
		})
		if err != nil {
			return err
		}
		if message.AuthorID != requesterID {
			return errors.ErrUnauthorized
		}

		if err := txn.Delete(logKey); err != nil {
			return err
		}
		return txn.Delete(idxKey)
	})
}

// nextLogKey hands out strictly increasing keys. The 19-digit padding keeps
// lexicographical order aligned with numeric order for the whole uint64
// range, same trick as a timestamp-padded key but collision free.
func (s *MessageStore) nextLogKey() []byte {
	return []byte(fmt.Sprintf("%s%019d", logPrefix, s.seq.Add(1)))
}
