package fingerprint

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const routerDoc = `{
  "key": "abc",
  "location": "10.0.0.1",
  "target": "10.9.9.9",
  "distance": 3,
  "attack_vectors": [
    {
      "service": null,
      "protocol": "TCP",
      "source_ips": ["1.1.1.1", "2.2.2.2"],
      "source_ips_real": {"1.1.1.1": "10.1.0.5", "2.2.2.2": "10.1.0.5"},
      "ttl": {"62": 0.75, "126": 0.25, "others": 0.0},
      "ttl_by_source": {"1.1.1.1": [62], "2.2.2.2": [62, 126]},
      "time_start": "2023-05-04T10:00:00.250000",
      "duration_seconds": 90.5,
      "nr_packets": 400,
      "nr_packets_by_source": {"1.1.1.1": 300, "2.2.2.2": 100},
      "nr_megabytes": 1.5,
      "detection_threshold": 0.8,
      "is_attack": true
    }
  ]
}`

func TestDecodeAndFlatten(t *testing.T) {
	fp, err := Decode([]byte(routerDoc), LoadOptions{})
	require.NoError(t, err)
	require.Equal(t, "abc", fp.Key)

	rows, err := Flatten(fp)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	require.Equal(t, "abc", first.Key)
	require.Equal(t, "10.0.0.1", first.Location)
	require.Equal(t, "10.9.9.9", first.Target)
	require.Equal(t, "1.1.1.1", first.SourceIP)
	require.Equal(t, "10.1.0.5", first.SourceIPReal)
	require.Equal(t, []int{62}, first.TTLSamples)
	require.Equal(t, 300.0, first.NrPackets)
	require.Equal(t, "", first.Service)
	require.Equal(t, "TCP", first.Protocol)
	require.NotNil(t, first.Distance)
	require.Equal(t, 3, *first.Distance)
	require.NotNil(t, first.IsAttack)
	require.True(t, *first.IsAttack)
	require.False(t, first.IsSelfObservation())

	wantStart := time.Date(2023, 5, 4, 10, 0, 0, 250000000, time.UTC)
	require.True(t, first.TimeStart.Equal(wantStart))
	require.True(t, first.TimeEnd().Equal(wantStart.Add(90500*time.Millisecond)))

	require.Equal(t, []int{62, 126}, rows[1].TTLSamples)
}

func TestFlattenMissingPerSourceFields(t *testing.T) {
	base := func() Fingerprint {
		fp, err := Decode([]byte(routerDoc), LoadOptions{})
		require.NoError(t, err)
		return fp
	}

	tests := []struct {
		name   string
		mutate func(*Fingerprint)
		field  string
	}{
		{"missing ttl", func(fp *Fingerprint) { delete(fp.AttackVectors[0].TTLBySource, "2.2.2.2") }, "ttl_by_source"},
		{"empty ttl", func(fp *Fingerprint) { fp.AttackVectors[0].TTLBySource["2.2.2.2"] = nil }, "ttl_by_source"},
		{"ttl out of range", func(fp *Fingerprint) { fp.AttackVectors[0].TTLBySource["2.2.2.2"] = []int{300} }, "ttl_by_source"},
		{"missing packets", func(fp *Fingerprint) { delete(fp.AttackVectors[0].NrPacketsBySource, "1.1.1.1") }, "nr_packets_by_source"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fp := base()
			tc.mutate(&fp)
			_, err := Flatten(fp)
			var mfe *MalformedFingerprintError
			require.True(t, errors.As(err, &mfe), "got %v", err)
			require.Equal(t, tc.field, mfe.Field)
			require.Equal(t, "abc", mfe.Key)
		})
	}
}

func TestFlattenAllWithoutData(t *testing.T) {
	_, err := FlattenAll(nil)
	require.ErrorIs(t, err, ErrMissingData)
}

func TestContentKey_IgnoresKeyOrderAndKeyField(t *testing.T) {
	a := []byte(`{"location":"a","target":"b","n":1.50,"key":"x"}`)
	b := []byte(`{ "n": 1.50, "target": "b",  "location": "a" }`)
	c := []byte(`{"location":"a","target":"b","n":1.5}`)

	ka, err := ContentKey(a)
	require.NoError(t, err)
	kb, err := ContentKey(b)
	require.NoError(t, err)
	kc, err := ContentKey(c)
	require.NoError(t, err)

	require.Equal(t, ka, kb)
	require.Len(t, ka, 32)
	// numbers are hashed as written
	require.NotEqual(t, ka, kc)
}

func TestDecode_KeyHandling(t *testing.T) {
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(routerDoc), &doc))
	delete(doc, "key")
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	fp, err := Decode(raw, LoadOptions{})
	require.NoError(t, err)
	want, err := ContentKey(raw)
	require.NoError(t, err)
	require.Equal(t, want, fp.Key)

	_, err = Decode([]byte(routerDoc), LoadOptions{VerifyKeys: true})
	var mfe *MalformedFingerprintError
	require.True(t, errors.As(err, &mfe))
	require.Equal(t, KeyField, mfe.Field)
}

func TestDecode_RejectsInvalidDocument(t *testing.T) {
	_, err := Decode([]byte(`{"location":"a","target":"b","attack_vectors":[]}`), LoadOptions{})
	var mfe *MalformedFingerprintError
	require.True(t, errors.As(err, &mfe), "got %v", err)
}

func TestLoadDirAndBundle(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.json"), []byte(routerDoc), 0o644))
	other := []byte(`{"location":"10.9.9.9","target":"10.9.9.9","attack_vectors":[{"service":"http","protocol":"TCP",
		"source_ips":["1.1.1.1"],"ttl":{"60":1},"ttl_by_source":{"1.1.1.1":[60]},"time_start":"2023-05-04T10:00:01Z",
		"duration_seconds":100,"nr_packets":50,"nr_packets_by_source":{"1.1.1.1":50},"nr_megabytes":0.1,
		"detection_threshold":1}]}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), other, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	fps, err := LoadDir(dir, LoadOptions{})
	require.NoError(t, err)
	require.Len(t, fps, 2)
	require.Equal(t, "10.9.9.9", fps[0].Location)
	require.Equal(t, "abc", fps[1].Key)

	docs, _, err := ReadDir(dir)
	require.NoError(t, err)
	bundle := filepath.Join(dir, "out", "set"+BundleExt)
	require.NoError(t, WriteBundle(bundle, docs))

	fromBundle, err := LoadBundle(bundle, LoadOptions{})
	require.NoError(t, err)
	require.Len(t, fromBundle, 2)
	require.Equal(t, fps[0].Key, fromBundle[0].Key)
	require.Equal(t, fps[1].Key, fromBundle[1].Key)
}

func TestLoadDir_Empty(t *testing.T) {
	_, err := LoadDir(t.TempDir(), LoadOptions{})
	require.ErrorIs(t, err, ErrMissingData)

	_, err = LoadDir("", LoadOptions{})
	require.ErrorIs(t, err, ErrMissingData)
}

func TestLoadDir_ReportsPath(t *testing.T) {
	dir := t.TempDir()
	bad := []byte(`{"location":"a","target":"b","attack_vectors":[{"protocol":"TCP","source_ips":["x"],
		"ttl_by_source":{},"time_start":"2023-05-04T10:00:00Z","duration_seconds":1,"nr_packets":1,
		"nr_packets_by_source":{"x":1},"detection_threshold":0.1}]}`)
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

	_, err := LoadDir(dir, LoadOptions{})
	var mfe *MalformedFingerprintError
	require.True(t, errors.As(err, &mfe))
	require.Equal(t, path, mfe.Path)

	// structurally valid documents still fail later, during normalization
	fp, err := Decode(bad, LoadOptions{})
	require.NoError(t, err)
	_, err = Flatten(fp)
	require.True(t, errors.As(err, &mfe))
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("2023-05-04T10:00:00+02:00")
	require.NoError(t, err)
	require.Equal(t, 8, ts.UTC().Hour())

	ts, err = ParseTimestamp("2023-05-04T10:00:00")
	require.NoError(t, err)
	require.Equal(t, time.UTC, ts.Location())

	_, err = ParseTimestamp("yesterday")
	require.Error(t, err)
}

func TestEnsureKey(t *testing.T) {
	fp, err := Decode([]byte(routerDoc), LoadOptions{})
	require.NoError(t, err)
	fp.Key = ""
	require.NoError(t, fp.EnsureKey())
	require.Len(t, fp.Key, 32)

	again := fp
	again.Key = ""
	require.NoError(t, again.EnsureKey())
	require.Equal(t, fp.Key, again.Key)
}
