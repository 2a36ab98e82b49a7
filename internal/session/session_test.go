package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/diamond-metrics/internal/config"
	"github.com/ginjaninja78/diamond-metrics/internal/engine"
	"github.com/ginjaninja78/diamond-metrics/internal/presets"
)

const export = `Stock Report
5, Diamond, Round, X=0.80, VS, White
10, Diamond, Pear, X=1.00, Y=0.70, G
3, Diamond, Heart, X=2.00, -, -
Total, Diamond, , , , 18
`

func testIndex() *presets.Index {
	return presets.NewIndex(
		presets.Table{"Round": {"0.8": "+000-00"}, "Pear": {"1*0.7": "P-1x0.7"}},
		presets.Table{"Round": {"0.8": "0.015"}, "Pear": {"1*0.7": "0.004"}},
	)
}

func testPipeline(maxBytes int64) *Pipeline {
	return NewPipeline(config.ParserSettings{}, testIndex(), maxBytes)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestPipeline_Run(t *testing.T) {
	result, err := testPipeline(0).Run(context.Background(), strings.NewReader(export))
	require.NoError(t, err)

	assert.Len(t, result.Records, 3)
	assert.Equal(t, 3, result.Stats.RecordsParsed)
	assert.Equal(t, 1, result.Stats.Unmatched)
	assert.Equal(t, len(export), result.Stats.BytesRead)

	require.Len(t, result.State.Rows, 3)
	assert.Equal(t, "P-1x0.7", result.State.Rows[1].SieveSize)
	assert.Equal(t, 18.0, result.State.Totals.Quantity)
	assert.InDelta(t, 0.115, result.State.Totals.Weight, 1e-12)
	for _, r := range result.State.Rows {
		assert.Equal(t, engine.WeightExpr, r.Expr)
	}
}

func TestPipeline_Errors(t *testing.T) {
	_, err := testPipeline(0).Run(context.Background(), strings.NewReader("nothing to see\n"))
	assert.ErrorIs(t, err, ErrNoRecords)

	_, err = testPipeline(0).Run(context.Background(), failingReader{})
	assert.ErrorIs(t, err, ErrReadFailed)
	assert.Contains(t, err.Error(), "disk gone")

	_, err = testPipeline(10).Run(context.Background(), strings.NewReader(export))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = testPipeline(0).Run(ctx, strings.NewReader(export))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_ExactLimitIsAllowed(t *testing.T) {
	_, err := testPipeline(int64(len(export))).Run(context.Background(), strings.NewReader(export))
	assert.NoError(t, err)
}

func newTestManager(ttl time.Duration) (*Manager, *time.Time) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	m := NewManager(testPipeline(0), ttl, func() string {
		n++
		return fmt.Sprintf("s%d", n)
	})
	m.now = func() time.Time { return now }
	return m, &now
}

func TestManager_Lifecycle(t *testing.T) {
	m, _ := newTestManager(0)

	s, err := m.Create(context.Background(), "stock.txt", strings.NewReader(export))
	require.NoError(t, err)
	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, "stock.txt", s.FileName)
	assert.Len(t, s.Records(), 3)

	got, err := m.Get("s1")
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, m.Delete("s1"))
	_, err = m.Get("s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, m.Delete("s1"), ErrSessionNotFound)
}

func TestManager_CreateFailureStoresNothing(t *testing.T) {
	m, _ := newTestManager(0)

	_, err := m.Create(context.Background(), "empty.txt", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoRecords)
	assert.Zero(t, m.Len())
}

func TestManager_Expiry(t *testing.T) {
	m, now := newTestManager(time.Hour)

	_, err := m.Create(context.Background(), "a.txt", strings.NewReader(export))
	require.NoError(t, err)

	*now = now.Add(30 * time.Minute)
	_, err = m.Get("s1")
	require.NoError(t, err, "use refreshes the idle timer")

	*now = now.Add(59 * time.Minute)
	assert.Zero(t, m.Sweep())

	*now = now.Add(2 * time.Minute)
	_, err = m.Get("s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 1, m.Sweep())
	assert.Zero(t, m.Len())
}

func TestManager_RunStopsWithContext(t *testing.T) {
	m, _ := newTestManager(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSession_ApplySerializesEvents(t *testing.T) {
	m, _ := newTestManager(0)
	s, err := m.Create(context.Background(), "a.txt", strings.NewReader(export))
	require.NoError(t, err)

	const n = 20
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := s.Apply(engine.InsertRows{Index: 0, Count: 1})
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}

	state := s.State()
	assert.Len(t, state.Rows, 3+n)
	assert.Equal(t, engine.ComputeTotals(state.Rows), state.Totals)
}

func TestSession_ApplyErrorKeepsState(t *testing.T) {
	m, _ := newTestManager(0)
	s, err := m.Create(context.Background(), "a.txt", strings.NewReader(export))
	require.NoError(t, err)

	before := s.State()
	got, err := s.Apply(engine.RemoveRows{Index: 5, Count: 1})
	assert.ErrorIs(t, err, engine.ErrRowRange)
	assert.Equal(t, before, got)
	assert.Equal(t, before, s.State())
}
