package sink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"ddos-reassembler/internal/config"
	"ddos-reassembler/internal/reassembler"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"
)

func testSummary() *reassembler.Summary {
	start := time.Date(2023, 5, 4, 10, 0, 0, 0, time.UTC)
	median := 0.8
	service := "http"
	diff := 1
	return &reassembler.Summary{
		Attack: reassembler.AttackWindow{
			StartTime:       start,
			EndTime:         start.Add(5 * time.Minute),
			DurationSeconds: 300,
			Service:         &service,
			Protocol:        "TCP",
		},
		Target: reassembler.TargetInfo{IP: "10.0.0.9", DetectionThreshold: 0.9},
		IntermediateNodes: reassembler.IntermediateNodes{
			NrIntermediateNodes: 1,
			DetectionThreshold:  map[string]*float64{"25": &median, "50": &median, "75": nil},
			KeyNodes: []reassembler.IntermediateNode{{
				Location:              "10.0.0.5",
				NrPackets:             500,
				HopsToTarget:          2,
				DetectionThreshold:    0.8,
				TimeStart:             start,
				TimeEnd:               start.Add(90 * time.Second),
				DurationSeconds:       90,
				FractionOfTotalAttack: 0.5,
				InferredDistanceDiff:  &diff,
			}},
		},
		Sources: reassembler.SourceStats{NrSources: 3, PctSpoofed: 1.0 / 3},
		Meta:    reassembler.RunMeta{RunID: "run-1", SchemaVersion: 1, NrFingerprints: 2, NrObservations: 4},
	}
}

func TestDirSinkWritesByKey(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	sk := NewDirSink(dir)
	s := testSummary()

	if err := sk.Write(context.Background(), s); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if len(s.Key) != 32 {
		t.Fatalf("expected a 32 character key, got %q", s.Key)
	}

	data, err := os.ReadFile(sk.Path(s.Key))
	if err != nil {
		t.Fatalf("summary not written under its key: %v", err)
	}
	if !strings.HasSuffix(string(data), "}\n") || !strings.Contains(string(data), "\n  \"attack\": {") {
		t.Fatalf("expected two-space indented JSON with trailing newline, got %s", data)
	}

	var decoded struct {
		Key  string         `json:"key"`
		Meta map[string]any `json:"meta"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Key != s.Key {
		t.Fatalf("embedded key %q does not match %q", decoded.Key, s.Key)
	}
	if _, ok := decoded.Meta["run_id"]; ok {
		t.Fatalf("run_id must not be persisted")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}

	// rewriting the same content lands on the same file
	again := testSummary()
	if err := sk.Write(context.Background(), again); err != nil {
		t.Fatalf("second Write failed: %v", err)
	}
	if again.Key != s.Key {
		t.Fatalf("equal summaries got different keys %q and %q", s.Key, again.Key)
	}
	if entries, _ = os.ReadDir(dir); len(entries) != 1 {
		t.Fatalf("expected one file after rewrite, got %d", len(entries))
	}
}

type failingSink struct {
	writes int
	err    error
	closed bool
}

func (f *failingSink) Write(context.Context, *reassembler.Summary) error {
	f.writes++
	return f.err
}

func (f *failingSink) Close() error {
	f.closed = true
	return f.err
}

func TestMultiStopsAtFirstFailure(t *testing.T) {
	boom := errors.New("boom")
	first, second := &failingSink{err: boom}, &failingSink{}
	m := Multi{first, second}

	if err := m.Write(context.Background(), testSummary()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if first.writes != 1 || second.writes != 0 {
		t.Fatalf("expected writes 1/0, got %d/%d", first.writes, second.writes)
	}

	if err := m.Close(); !errors.Is(err, boom) {
		t.Fatalf("expected Close to report boom, got %v", err)
	}
	if !first.closed || !second.closed {
		t.Fatalf("every sink must be closed")
	}
}

func TestFromConfigDirOnly(t *testing.T) {
	sinks, err := FromConfig(context.Background(), config.OutputConfig{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}
	if len(sinks) != 1 {
		t.Fatalf("expected one sink, got %d", len(sinks))
	}
	if _, ok := sinks[0].(*DirSink); !ok {
		t.Fatalf("expected a DirSink, got %T", sinks[0])
	}
}

func TestSummaryPoints(t *testing.T) {
	s := testSummary()
	if err := s.ComputeKey(); err != nil {
		t.Fatalf("ComputeKey failed: %v", err)
	}

	points := summaryPoints(s)
	if len(points) != 2 {
		t.Fatalf("expected summary and node point, got %d", len(points))
	}

	summary := points[0]
	if summary.Name() != summaryMeasurement || !summary.Time().Equal(s.Attack.StartTime) {
		t.Fatalf("unexpected summary point %s at %v", summary.Name(), summary.Time())
	}

	tags := map[string]string{}
	for _, tag := range summary.TagList() {
		tags[tag.Key] = tag.Value
	}
	if tags["target"] != "10.0.0.9" || tags["run_id"] != "run-1" || tags["summary_key"] != s.Key {
		t.Fatalf("unexpected tags %v", tags)
	}

	fields := map[string]any{}
	for _, f := range summary.FieldList() {
		fields[f.Key] = f.Value
	}
	if _, ok := fields["detection_threshold_p50"]; !ok {
		t.Fatalf("expected detection_threshold_p50 field")
	}
	if _, ok := fields["detection_threshold_p75"]; ok {
		t.Fatalf("missing percentiles must not become fields")
	}
	if fields["service"] != "http" {
		t.Fatalf("expected service http, got %v", fields["service"])
	}

	node := points[1]
	if node.Name() != nodeMeasurement {
		t.Fatalf("expected %s, got %s", nodeMeasurement, node.Name())
	}
	nodeTags := map[string]string{}
	for _, tag := range node.TagList() {
		nodeTags[tag.Key] = tag.Value
	}
	if nodeTags["location"] != "10.0.0.5" {
		t.Fatalf("unexpected node tags %v", nodeTags)
	}
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestS3SinkObjectKey(t *testing.T) {
	fake := &fakeS3{}
	sk := &S3Sink{client: fake, bucket: "fingerprints", prefix: "summaries/2023"}
	s := testSummary()

	if err := sk.Write(context.Background(), s); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if got := aws.ToString(fake.input.Bucket); got != "fingerprints" {
		t.Fatalf("unexpected bucket %q", got)
	}
	if got := aws.ToString(fake.input.Key); got != "summaries/2023/"+s.Key+".json" {
		t.Fatalf("unexpected object key %q", got)
	}
	if got := aws.ToString(fake.input.ContentType); got != "application/json" {
		t.Fatalf("unexpected content type %q", got)
	}

	want, err := Encode(s)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if string(fake.body) != string(want) {
		t.Fatalf("uploaded body differs from the encoded summary")
	}

	bare := &S3Sink{client: fake, bucket: "b"}
	if got := bare.objectKey("abc"); got != "abc.json" {
		t.Fatalf("expected abc.json without prefix, got %q", got)
	}
}

type fakeRedis struct {
	values    map[string]string
	ttl       time.Duration
	published []string
	err       error
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.values[key] = string(value.([]byte))
	f.ttl = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	f.published = append(f.published, channel+"="+message.(string))
	return redis.NewIntResult(1, nil)
}

func (f *fakeRedis) Close() error { return nil }

func TestRedisSink(t *testing.T) {
	fake := &fakeRedis{}
	sk := &RedisSink{client: fake, channel: "summaries", ttl: time.Hour}
	s := testSummary()

	if err := sk.Write(context.Background(), s); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, ok := fake.values["summary:"+s.Key]; !ok {
		t.Fatalf("expected summary:%s to be set, got %v", s.Key, fake.values)
	}
	if fake.ttl != time.Hour {
		t.Fatalf("expected TTL 1h, got %v", fake.ttl)
	}
	if want := []string{"summaries=" + s.Key}; !reflect.DeepEqual(fake.published, want) {
		t.Fatalf("expected publish %v, got %v", want, fake.published)
	}

	quiet := &fakeRedis{}
	if err := (&RedisSink{client: quiet}).Write(context.Background(), testSummary()); err != nil {
		t.Fatalf("Write without channel failed: %v", err)
	}
	if len(quiet.published) != 0 {
		t.Fatalf("nothing should be published without a channel")
	}

	boom := errors.New("connection refused")
	err := (&RedisSink{client: &fakeRedis{err: boom}}).Write(context.Background(), testSummary())
	if !errors.Is(err, boom) {
		t.Fatalf("expected connection error, got %v", err)
	}
}

func TestPostgresStatements(t *testing.T) {
	p := &PostgresSink{table: `"reassembly_summaries"`}
	if !strings.Contains(p.createTableSQL(), `CREATE TABLE IF NOT EXISTS "reassembly_summaries"`) {
		t.Fatalf("unexpected create statement %s", p.createTableSQL())
	}
	upsert := p.upsertSQL()
	if !strings.Contains(upsert, "ON CONFLICT (key)") || strings.Count(upsert, "$") != 8 {
		t.Fatalf("unexpected upsert statement %s", upsert)
	}
}
