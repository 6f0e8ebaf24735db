package reports

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/praballama89182-collab/NGRAM/internal/analysis"
	"github.com/praballama89182-collab/NGRAM/internal/ingest"
)

// fakeGate implements ReportGate for tests with counters.
type fakeGate struct {
	acquireErr error
	acquires   atomic.Int64
	releases   atomic.Int64
}

func (g *fakeGate) AcquireReport(ctx context.Context) error {
	g.acquires.Add(1)
	return g.acquireErr
}
func (g *fakeGate) ReleaseReport() { g.releases.Add(1) }

func sampleTable() ingest.Table {
	return ingest.Table{
		Headers: []string{"Customer Search Term", "Spend", "7 Day Total Sales"},
		Records: [][]string{
			{"wireless mouse", "10", "100"},
			{"usb hub", "5", "0"},
		},
	}
}

func TestAdoptGetClose(t *testing.T) {
	gate := &fakeGate{}
	m := NewManager(2*time.Second, time.Second, gate, time.Now)

	id, err := m.Adopt(context.Background(), "upload.csv", sampleTable(), OpenOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Equal(t, int64(1), gate.acquires.Load())
	require.Equal(t, 1, m.Count())

	r, ok := m.Get(id)
	require.True(t, ok)
	require.Equal(t, id, r.ID)
	require.Len(t, r.Rows, 2)
	require.Equal(t, "wireless mouse", r.Rows[0].Term)

	require.NoError(t, m.CloseHandle(context.Background(), id))
	require.Equal(t, 0, m.Count())
	require.Equal(t, int64(1), gate.releases.Load())

	require.ErrorIs(t, m.CloseHandle(context.Background(), id), ErrHandleNotFound)
}

func TestOpenCSVFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.csv")
	src := "Customer Search Term,Spend,7 Day Total Sales\nwireless mouse,10,100\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	m := NewManager(time.Second, time.Second, nil, time.Now)
	id, err := m.Open(context.Background(), path, OpenOptions{})
	require.NoError(t, err)

	require.NoError(t, m.WithRows(id, func(rows []analysis.CanonicalRow, schema analysis.Schema) error {
		require.Len(t, rows, 1)
		require.Equal(t, 10.0, rows[0].Spend)
		require.GreaterOrEqual(t, schema.Term, 0)
		return nil
	}))
}

func TestTTLExpiryAndEviction(t *testing.T) {
	var now atomic.Int64
	now.Store(time.Now().UnixNano())
	clock := func() time.Time { return time.Unix(0, now.Load()) }

	gate := &fakeGate{}
	m := NewManager(50*time.Millisecond, 5*time.Millisecond, gate, clock)

	_, err := m.Adopt(context.Background(), "upload.csv", sampleTable(), OpenOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, m.Count())

	now.Store(time.Now().Add(200 * time.Millisecond).UnixNano())
	m.EvictExpired()

	require.Equal(t, 0, m.Count())
	require.Equal(t, int64(1), gate.releases.Load())
}

func TestOpen_GateBusy(t *testing.T) {
	gate := &fakeGate{acquireErr: context.DeadlineExceeded}
	m := NewManager(time.Second, time.Second, gate, time.Now)

	_, err := m.Open(context.Background(), "report.csv", OpenOptions{})
	require.Error(t, err)
	require.Equal(t, int64(1), gate.acquires.Load())
	require.Equal(t, int64(0), gate.releases.Load())
}

type denyValidator struct{}

func (denyValidator) ValidateOpenPath(string) (string, error) { return "", fmt.Errorf("denied") }

func TestOpen_PathValidatorDenied_ReleasesGate(t *testing.T) {
	gate := &fakeGate{}
	m := NewManager(time.Second, time.Second, gate, time.Now)
	m.SetValidator(denyValidator{})

	_, err := m.Open(context.Background(), "report.csv", OpenOptions{})
	require.Error(t, err)
	require.Equal(t, int64(1), gate.acquires.Load())
	require.Equal(t, int64(1), gate.releases.Load())
}

func TestAdopt_SchemaErrorReleasesGate(t *testing.T) {
	gate := &fakeGate{}
	m := NewManager(time.Second, time.Second, gate, time.Now)

	tbl := ingest.Table{Headers: []string{"Campaign"}, Records: [][]string{{"x"}}}
	_, err := m.Adopt(context.Background(), "upload.csv", tbl, OpenOptions{})
	var schemaErr *analysis.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Equal(t, int64(1), gate.releases.Load())
	require.Equal(t, 0, m.Count())
}
