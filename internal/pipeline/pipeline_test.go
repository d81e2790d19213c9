package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/grib-ensemble-inventory/internal/domain"
	"github.com/couchcryptid/grib-ensemble-inventory/internal/observability"
	"github.com/couchcryptid/grib-ensemble-inventory/internal/pipeline"
)

// --- mocks ---

// mockExtractor hands out its events in one batch, then blocks until the
// context is cancelled to simulate an idle topic.
type mockExtractor struct {
	events []domain.RawEvent
	served atomic.Bool
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error) {
	if !m.served.Swap(true) && len(m.events) > 0 {
		n := min(batchSize, len(m.events))
		return m.events[:n], nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

type mockTransformer struct {
	err error
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	if m.err != nil {
		return domain.OutputEvent{}, m.err
	}
	return domain.OutputEvent{Key: raw.Key, Value: raw.Value}, nil
}

type mockLoader struct {
	mu     sync.Mutex
	loaded []domain.OutputEvent
	err    error
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.OutputEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, events...)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- pipeline tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	raw := makeRawEvent(t, "gec00", nil, 0)

	ext := &mockExtractor{events: []domain.RawEvent{raw}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, raw.Value, ldr.loaded[0].Value)
	assert.True(t, p.Ready())
	require.NoError(t, p.CheckReadiness(ctx))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.MessagesConsumed), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.MessagesProduced), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.PipelineRunning), 0)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_TransformErrorSkipsAndCommits(t *testing.T) {
	var commits atomic.Int32
	raw := makeRawEvent(t, "gep01", nil, 1)
	raw.Commit = func(_ context.Context) error {
		commits.Add(1)
		return nil
	}

	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(&mockExtractor{events: []domain.RawEvent{raw}}, &mockTransformer{err: errors.New("bad record")}, ldr, discardLogger(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded)
	assert.False(t, p.Ready())
	assert.Equal(t, int32(1), commits.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.TransformErrors), 0)
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	commitCalled := false
	raw := makeRawEvent(t, "gep02", nil, 2)
	raw.Topic = "grib-records"
	raw.Commit = func(_ context.Context) error {
		commitCalled = true
		return nil
	}

	p := pipeline.New(&mockExtractor{events: []domain.RawEvent{raw}}, &mockTransformer{}, &mockLoader{}, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.True(t, commitCalled)
}

func TestPipeline_Run_LoadErrorDoesNotCommit(t *testing.T) {
	commitCalled := false
	raw := makeRawEvent(t, "gep03", nil, 3)
	raw.Commit = func(_ context.Context) error {
		commitCalled = true
		return nil
	}

	ldr := &mockLoader{err: errors.New("broker unavailable")}
	p := pipeline.New(&mockExtractor{events: []domain.RawEvent{raw}}, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.False(t, commitCalled)
	assert.False(t, p.Ready())
}

// --- transformer tests ---

func TestEnsembleTransformer_Transform(t *testing.T) {
	fixed := time.Date(2024, time.April, 26, 6, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { domain.SetClock(nil) })

	ensType := 3
	raw := makeRawEvent(t, "gep07", &ensType, 7)

	metrics := observability.NewMetricsForTesting()
	tfm := pipeline.NewTransformer(domain.NewDecoder(domain.StyleDescriptive, discardLogger()), metrics, discardLogger())

	out, err := tfm.Transform(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "7", out.Headers["center"])

	var line domain.InventoryLine
	require.NoError(t, json.Unmarshal(out.Value, &line))

	type summary struct {
		Ensemble  string
		Members   string
		Inventory string
	}
	want := summary{
		Ensemble:  "positive perturbation 7",
		Members:   "31 ensemble members",
		Inventory: "5:1024:d=2024042600:HGT:500 mb:24 hour fcst:positive perturbation 7:31 ensemble members",
	}
	got := summary{Ensemble: line.Ensemble, Members: line.EnsembleMembers, Inventory: line.Inventory}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("inventory mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, out.Key, []byte(line.ID))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Labels.WithLabelValues("ensemble", "recognized")), 0)
}

func TestEnsembleTransformer_CountsCorrections(t *testing.T) {
	payload, err := json.Marshal(map[string]any{
		"record":           1,
		"offset":           0,
		"ref_time":         "2024-04-26T00:00:00Z",
		"parameter":        "2T",
		"center":           domain.CenterECMWF,
		"pdt":              11,
		"perturbation":     12,
		"ensemble_members": 51,
	})
	require.NoError(t, err)

	metrics := observability.NewMetricsForTesting()
	tfm := pipeline.NewTransformer(domain.NewDecoder(domain.StyleWgrib2, discardLogger()), metrics, discardLogger())

	out, err := tfm.Transform(context.Background(), domain.RawEvent{Value: payload})
	require.NoError(t, err)

	var line domain.InventoryLine
	require.NoError(t, json.Unmarshal(out.Value, &line))
	assert.Equal(t, "ENS=+12", line.Ensemble)
	assert.True(t, line.Corrected)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.EnsembleCorrections), 0)
}

func TestEnsembleTransformer_UnrecognizedDerived(t *testing.T) {
	payload := []byte(`{"record":9,"ref_time":"2024-04-26T00:00:00Z","parameter":"APCP","center":98,"pdt":2,"derived_forecast_type":199}`)

	metrics := observability.NewMetricsForTesting()
	tfm := pipeline.NewTransformer(domain.NewDecoder(domain.StyleDescriptive, discardLogger()), metrics, discardLogger())

	out, err := tfm.Transform(context.Background(), domain.RawEvent{Value: payload})
	require.NoError(t, err)
	assert.Contains(t, string(out.Value), `"ensemble":"unknown derived forecast"`)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Labels.WithLabelValues("derived", "unrecognized")), 0)
}

func TestEnsembleTransformer_InvalidPayload(t *testing.T) {
	tfm := pipeline.NewTransformer(domain.NewDecoder(domain.StyleDescriptive, discardLogger()), nil, discardLogger())
	_, err := tfm.Transform(context.Background(), domain.RawEvent{Value: []byte("not json")})
	assert.Error(t, err)
}

// --- helpers ---

func makeRawEvent(t *testing.T, file string, ensType *int, pert int) domain.RawEvent {
	t.Helper()
	members := 31
	data, err := json.Marshal(domain.GribRecord{
		File:            file,
		Record:          5,
		Offset:          1024,
		ReferenceTime:   time.Date(2024, time.April, 26, 0, 0, 0, 0, time.UTC),
		Parameter:       "HGT",
		Level:           "500 mb",
		Forecast:        "24 hour fcst",
		Center:          domain.CenterNCEP,
		PDT:             1,
		EnsembleType:    ensType,
		Perturbation:    pert,
		EnsembleMembers: &members,
	})
	require.NoError(t, err)
	return domain.RawEvent{Key: []byte(file), Value: data}
}
