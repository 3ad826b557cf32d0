package queue

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/eatsome/printer-daemon/internal/apperr"
	"github.com/eatsome/printer-daemon/internal/zeroize"
	"golang.org/x/crypto/pbkdf2"
)

const pbkdf2Iterations = 100_000

// DeriveKey derives a 256-bit AES key from restaurantID (as password)
// and salt using PBKDF2-HMAC-SHA256, domain-separated the same way
// the original daemon salts its key: "eatsome-printer-daemon:<salt>".
// The caller must Close() the returned Bytes once the key is no
// longer needed.
func DeriveKey(restaurantID, salt string) *zeroize.Bytes {
	fullSalt := "eatsome-printer-daemon:" + salt
	key := pbkdf2.Key([]byte(restaurantID), []byte(fullSalt), pbkdf2Iterations, 32, sha256.New)
	return zeroize.New([]byte(hex.EncodeToString(key)))
}

// encryptItems seals the JSON-encoded item list with AES-256-GCM,
// keyed by the hex-encoded PBKDF2 key. See DESIGN.md for why this is
// a column-level envelope rather than page-level SQLCipher encryption.
func encryptItems(key []byte, items []Item) ([]byte, error) {
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, apperr.QueueWrap(err, "serialize items")
	}

	block, err := newAESCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperr.QueueWrap(err, "init gcm")
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, apperr.QueueWrap(err, "generate nonce")
	}

	return gcm.Seal(nonce, nonce, raw, nil), nil
}

func decryptItems(key []byte, ciphertext []byte) ([]Item, error) {
	block, err := newAESCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperr.QueueWrap(err, "init gcm")
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, apperr.Queue("ciphertext too short")
	}
	nonce, body := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]

	raw, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, apperr.QueueWrap(err, "decrypt items (key mismatch?)")
	}

	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, apperr.QueueWrap(err, "parse decrypted items")
	}
	return items, nil
}

func newAESCipher(hexKey []byte) (cipher.Block, error) {
	decoded := make([]byte, hex.DecodedLen(len(hexKey)))
	n, err := hex.Decode(decoded, hexKey)
	if err != nil {
		return nil, apperr.QueueWrap(err, "decode key")
	}
	block, err := aes.NewCipher(decoded[:n])
	if err != nil {
		return nil, apperr.QueueWrap(err, fmt.Sprintf("init aes cipher (key len %d)", n))
	}
	return block, nil
}
