package fingerprint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ddos-reassembler/internal/logging"

	"github.com/golang/snappy"
	"github.com/sirupsen/logrus"
)

// BundleExt is the file extension of snappy compressed fingerprint bundles.
const BundleExt = ".json.sz"

type LoadOptions struct {
	// VerifyKeys rejects documents whose stored key does not match their content.
	VerifyKeys bool
}

// Decode parses one fingerprint document. A missing key is filled in from the
// document content.
func Decode(data []byte, opts LoadOptions) (Fingerprint, error) {
	var fp Fingerprint
	if err := json.Unmarshal(data, &fp); err != nil {
		return Fingerprint{}, &MalformedFingerprintError{Reason: err.Error()}
	}

	key, err := ContentKey(data)
	if err != nil {
		return Fingerprint{}, &MalformedFingerprintError{Key: fp.Key, Reason: err.Error()}
	}
	switch {
	case fp.Key == "":
		fp.Key = key
	case opts.VerifyKeys && fp.Key != key:
		return Fingerprint{}, &MalformedFingerprintError{Key: fp.Key, Field: KeyField,
			Reason: fmt.Sprintf("content hashes to %s", key)}
	}

	if err := Validate(&fp); err != nil {
		return Fingerprint{}, err
	}
	return fp, nil
}

// LoadDir reads every *.json document in dir, in file name order.
func LoadDir(dir string, opts LoadOptions) ([]Fingerprint, error) {
	docs, paths, err := ReadDir(dir)
	if err != nil {
		return nil, err
	}

	fps := make([]Fingerprint, 0, len(docs))
	for i, doc := range docs {
		fp, err := Decode(doc, opts)
		if err != nil {
			var mfe *MalformedFingerprintError
			if errors.As(err, &mfe) {
				mfe.Path = paths[i]
			}
			return nil, err
		}
		fps = append(fps, fp)
	}

	logging.GetLogger().WithFields(logrus.Fields{
		"dir":          dir,
		"fingerprints": len(fps),
	}).Debug("Loaded fingerprints from directory")
	return fps, nil
}

// ReadDir returns the raw *.json documents in dir together with their paths, sorted
// by file name.
func ReadDir(dir string) ([]json.RawMessage, []string, error) {
	if dir == "" {
		return nil, nil, ErrMissingData
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read fingerprint directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	if len(names) == 0 {
		return nil, nil, fmt.Errorf("%w: no .json documents in %s", ErrMissingData, dir)
	}

	docs := make([]json.RawMessage, 0, len(names))
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("read fingerprint: %w", err)
		}
		docs = append(docs, data)
		paths = append(paths, path)
	}
	return docs, paths, nil
}

// LoadBundle reads a snappy compressed JSON array of fingerprint documents.
func LoadBundle(path string, opts LoadOptions) ([]Fingerprint, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bundle: %w", err)
	}
	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("decompress bundle %s: %w", path, err)
	}

	var docs []json.RawMessage
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decode bundle %s: %w", path, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: bundle %s is empty", ErrMissingData, path)
	}

	fps := make([]Fingerprint, 0, len(docs))
	for i, doc := range docs {
		fp, err := Decode(doc, opts)
		if err != nil {
			var mfe *MalformedFingerprintError
			if errors.As(err, &mfe) {
				mfe.Path = fmt.Sprintf("%s[%d]", path, i)
			}
			return nil, err
		}
		fps = append(fps, fp)
	}

	logging.GetLogger().WithFields(logrus.Fields{
		"bundle":       path,
		"fingerprints": len(fps),
	}).Debug("Loaded fingerprint bundle")
	return fps, nil
}

// WriteBundle stores the raw documents as one snappy compressed JSON array. Documents
// are kept verbatim apart from whitespace, so their content keys survive the round trip.
func WriteBundle(path string, docs []json.RawMessage) error {
	if len(docs) == 0 {
		return ErrMissingData
	}
	data, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, snappy.Encode(nil, data), 0o644)
}
