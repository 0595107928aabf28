package fingerprint

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// KeyField is the document field that carries the content key. It is excluded from
// the hashed form.
const KeyField = "key"

// ContentKey returns the hex MD5 over the canonical JSON form of doc without its key
// field. The canonical form has sorted object keys, no insignificant whitespace and
// numbers exactly as they appear in the input, so two documents that differ only in
// field order or formatting share a key.
func ContentKey(doc []byte) (string, error) {
	canonical, err := Canonicalize(doc)
	if err != nil {
		return "", err
	}
	sum := md5.Sum(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// KeyOf marshals v and returns its content key.
func KeyOf(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal for content key: %w", err)
	}
	return ContentKey(b)
}

// Canonicalize re-encodes a JSON object with sorted keys and the key field removed.
func Canonicalize(doc []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	delete(obj, KeyField)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(obj); err != nil {
		return nil, fmt.Errorf("encode canonical form: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// EnsureKey fills in the content key of a fingerprint built in memory.
func (fp *Fingerprint) EnsureKey() error {
	if fp.Key != "" {
		return nil
	}
	key, err := KeyOf(fp)
	if err != nil {
		return err
	}
	fp.Key = key
	return nil
}
