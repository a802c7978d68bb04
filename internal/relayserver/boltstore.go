package relayserver

import (
	"encoding/binary"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"

	"boxchat/internal/domain"
)

const (
	metadataBucket = "metadata"
	usersBucket    = "users"
	messagesBucket = "messages"
	inboxBucket    = "inbox"

	versionKey = "version"
	dbVersion  = 0
)

type boltStore struct {
	db *bolt.DB
}

type boltMessage struct {
	From       domain.Username `cbor:"from"`
	To         domain.Username `cbor:"to"`
	Nonce      string          `cbor:"nonce"`
	Ciphertext string          `cbor:"ciphertext"`
	Timestamp  int64           `cbor:"timestamp"`
}

// NewBoltStore creates (or loads) a Store backed by the bbolt file f.
//
// Messages live in the messages bucket keyed by their big-endian id; each
// recipient has a nested bucket under inbox holding the ids addressed to
// them, so a fetch only walks that user's queue.
func NewBoltStore(f string) (Store, error) {
	db, err := bolt.Open(f, 0o600, nil)
	if err != nil {
		return nil, err
	}

	if err = db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return err
		}
		for _, b := range []string{usersBucket, messagesBucket, inboxBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(b)); err != nil {
				return err
			}
		}

		if b := meta.Get([]byte(versionKey)); b != nil {
			if len(b) != 1 || b[0] != dbVersion {
				return fmt.Errorf("relayserver: incompatible database version: %v", b)
			}
			return nil
		}
		return meta.Put([]byte(versionKey), []byte{dbVersion})
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &boltStore{db: db}, nil
}

func (s *boltStore) AddUser(u User) error {
	raw, err := cbor.Marshal(&u)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(usersBucket))
		if bkt.Get([]byte(u.Username)) != nil {
			return ErrUserExists
		}
		return bkt.Put([]byte(u.Username), raw)
	})
}

func (s *boltStore) User(name domain.Username) (User, error) {
	var u User
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(usersBucket)).Get([]byte(name))
		if raw == nil {
			return ErrNoSuchUser
		}
		return cbor.Unmarshal(raw, &u)
	})
	return u, err
}

func (s *boltStore) SetPublicKey(name domain.Username, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(usersBucket))
		raw := bkt.Get([]byte(name))
		if raw == nil {
			return ErrNoSuchUser
		}
		var u User
		if err := cbor.Unmarshal(raw, &u); err != nil {
			return err
		}
		u.IdentityPublicKey = key
		raw, err := cbor.Marshal(&u)
		if err != nil {
			return err
		}
		return bkt.Put([]byte(name), raw)
	})
}

func (s *boltStore) AppendMessage(m domain.InboundMessage) (domain.MessageID, error) {
	raw, err := cbor.Marshal(&boltMessage{
		From:       m.From,
		To:         m.To,
		Nonce:      m.Envelope.Nonce,
		Ciphertext: m.Envelope.Ciphertext,
		Timestamp:  m.Timestamp,
	})
	if err != nil {
		return 0, err
	}

	var id uint64
	err = s.db.Update(func(tx *bolt.Tx) error {
		msgs := tx.Bucket([]byte(messagesBucket))
		if id, err = msgs.NextSequence(); err != nil {
			return err
		}
		k := idKey(id)
		if err := msgs.Put(k, raw); err != nil {
			return err
		}
		inbox, err := tx.Bucket([]byte(inboxBucket)).CreateBucketIfNotExists([]byte(m.To))
		if err != nil {
			return err
		}
		return inbox.Put(k, []byte{})
	})
	if err != nil {
		return 0, err
	}
	return domain.MessageID(id), nil
}

func (s *boltStore) MessagesFor(recipient domain.Username, since domain.MessageID) ([]domain.InboundMessage, error) {
	if since < 0 {
		since = 0
	}
	out := []domain.InboundMessage{}
	err := s.db.View(func(tx *bolt.Tx) error {
		inbox := tx.Bucket([]byte(inboxBucket)).Bucket([]byte(recipient))
		if inbox == nil {
			return nil
		}
		msgs := tx.Bucket([]byte(messagesBucket))

		c := inbox.Cursor()
		for k, _ := c.Seek(idKey(uint64(since) + 1)); k != nil; k, _ = c.Next() {
			raw := msgs.Get(k)
			if raw == nil {
				return fmt.Errorf("relayserver: inbox entry %x has no message", k)
			}
			var bm boltMessage
			if err := cbor.Unmarshal(raw, &bm); err != nil {
				return err
			}
			out = append(out, domain.InboundMessage{
				ID:        domain.MessageID(binary.BigEndian.Uint64(k)),
				From:      bm.From,
				To:        bm.To,
				Envelope:  domain.CipherEnvelope{Nonce: bm.Nonce, Ciphertext: bm.Ciphertext},
				Timestamp: bm.Timestamp,
			})
		}
		return nil
	})
	return out, err
}

func (s *boltStore) Close() error {
	s.db.Sync()
	return s.db.Close()
}

func idKey(id uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], id)
	return k[:]
}
