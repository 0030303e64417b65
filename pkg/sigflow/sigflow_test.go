package sigflow

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/sigflow/internal/raster"
)

// newDataset writes a reference dataset with three samples for
// "Sara Ahmed" and one for "Li" and returns its root.
func newDataset(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	labels := "filename,name\n"
	for i, name := range []string{"Sara Ahmed", "Sara Ahmed", "sara ahmed", "Li"} {
		file := filepath.Join("imgs", "s"+string(rune('a'+i))+".png")
		labels += file + "," + name + "\n"
		writeSample(t, filepath.Join(root, file), 100+20*i)
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "labels.csv"), []byte(labels), 0o644))
	return root
}

func writeSample(t *testing.T, path string, width int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	img := raster.Blank(width, 60)
	raster.HLine(img, 5, width-5, 30, 3)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func newSigflow(t *testing.T, opts ...Option) (*Sigflow, string) {
	t.Helper()
	out := filepath.Join(t.TempDir(), "output")
	base := []Option{
		WithDatasetRoot(newDataset(t)),
		WithFontDir(filepath.Join(t.TempDir(), "no-fonts")),
		WithOutputDir(out),
		WithSeed(7),
	}
	s, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, out
}

func readLog(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestSynthesizeDatasetMode(t *testing.T) {
	s, out := newSigflow(t)

	g, err := s.SynthesizeDetailed(context.Background(), "  SARA AHMED ", "dataset")
	require.NoError(t, err)
	assert.Equal(t, "dataset", g.Source)
	assert.False(t, g.Fallback)
	assert.Equal(t, "SARA AHMED", g.Name)
	require.Len(t, g.Refs, 3)
	require.Len(t, g.Samples, 3)

	used := map[string]bool{}
	for i, smp := range g.Samples {
		assert.Equal(t, i+1, smp.Index)
		assert.Equal(t, "/static/output/"+smp.File, smp.Ref)
		assert.NotEmpty(t, smp.SourcePath)
		assert.Empty(t, smp.Text)
		used[smp.SourcePath] = true
		_, err := os.Stat(filepath.Join(out, smp.File))
		assert.NoError(t, err)
	}
	assert.Len(t, used, 3, "three distinct samples drawn without replacement")

	require.NoError(t, s.Close())
	rows := readLog(t, filepath.Join(out, "generation_log.csv"))
	require.Len(t, rows, 4)
	for _, row := range rows[1:] {
		assert.Equal(t, "dataset", row[3])
	}
}

func TestSynthesizeFallsBackForSparseName(t *testing.T) {
	s, _ := newSigflow(t)

	// "Li" has one sample: cyclic fill gives three dataset slots.
	g, err := s.SynthesizeDetailed(context.Background(), "Li", "hybrid")
	require.NoError(t, err)
	assert.Equal(t, "dataset", g.Source)

	g, err = s.SynthesizeDetailed(context.Background(), "Omar Farooq", "dataset")
	require.NoError(t, err)
	assert.Equal(t, "procedural", g.Source)
	assert.True(t, g.Fallback)
	assert.Equal(t, "Omar Farooq", g.Samples[0].Text)
	assert.Equal(t, "O. Farooq", g.Samples[1].Text)
	assert.Equal(t, "OmaFar.", g.Samples[2].Text)
}

func TestUnknownModeIsHybrid(t *testing.T) {
	s, _ := newSigflow(t)
	g, err := s.SynthesizeDetailed(context.Background(), "Sara Ahmed", "mystery")
	require.NoError(t, err)
	assert.Equal(t, "dataset", g.Source)
}

func TestProceduralModeIgnoresDataset(t *testing.T) {
	s, out := newSigflow(t)
	refs, err := s.Synthesize("Sara Ahmed", "procedural")
	require.NoError(t, err)
	require.Len(t, refs, 3)

	for _, ref := range refs {
		f, err := os.Open(filepath.Join(out, filepath.Base(ref)))
		require.NoError(t, err)
		img, err := png.Decode(f)
		f.Close()
		require.NoError(t, err)
		assert.Equal(t, 128, img.Bounds().Dx())
		assert.Equal(t, 128, img.Bounds().Dy())
	}
}

func TestSameSeedSameImages(t *testing.T) {
	a, outA := newSigflow(t, WithSeed(99))
	b, outB := newSigflow(t, WithSeed(99))

	refsA, err := a.Synthesize("Ali Khan", "procedural")
	require.NoError(t, err)
	refsB, err := b.Synthesize("Ali Khan", "procedural")
	require.NoError(t, err)

	for i := range refsA {
		da, err := os.ReadFile(filepath.Join(outA, filepath.Base(refsA[i])))
		require.NoError(t, err)
		db, err := os.ReadFile(filepath.Join(outB, filepath.Base(refsB[i])))
		require.NoError(t, err)
		assert.True(t, bytes.Equal(da, db), "slot %d differs", i+1)
	}
}

func TestWithUUIDs(t *testing.T) {
	s, _ := newSigflow(t, WithUUIDs())
	g, err := s.SynthesizeDetailed(context.Background(), "Ali Khan", "procedural")
	require.NoError(t, err)
	_, err = uuid.Parse(g.RequestID)
	assert.NoError(t, err)
	assert.Equal(t, "sig_"+g.RequestID+"_2.png", g.Samples[1].File)
}

func TestAuditEcho(t *testing.T) {
	var buf bytes.Buffer
	s, _ := newSigflow(t, WithAuditEcho(&buf))
	_, err := s.Synthesize("Ali Khan", "procedural")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &rec))
	assert.Equal(t, "AliKha.", rec["text_form"])
}

func TestHistory(t *testing.T) {
	s, _ := newSigflow(t)
	_, err := s.History(context.Background(), "Ali Khan")
	assert.ErrorIs(t, err, ErrNoHistory)

	dsn := filepath.Join(t.TempDir(), "audit.db")
	s, _ = newSigflow(t, WithSQLite(dsn))
	for i := 0; i < 2; i++ {
		_, err := s.Synthesize("Ali Khan", "procedural")
		require.NoError(t, err)
	}
	_, err = s.Synthesize("Sara Ahmed", "dataset")
	require.NoError(t, err)

	recs, err := s.History(context.Background(), " Ali Khan ")
	require.NoError(t, err)
	require.Len(t, recs, 6)
	assert.Equal(t, "procedural", recs[0].Source)
	assert.Equal(t, 1, recs[0].Index)
	assert.Equal(t, "Ali Khan", recs[0].Text)
}

func TestPredictWithoutModel(t *testing.T) {
	s, _ := newSigflow(t, WithModel("/nonexistent/model.onnx", "/nonexistent/classes.txt"))
	assert.False(t, s.HasClassifier())
	refs, err := s.Synthesize("Ali Khan", "hybrid")
	require.NoError(t, err)
	assert.Nil(t, s.Predict(refs, "Ali Khan"))
}

func TestConcurrentSynthesize(t *testing.T) {
	s, out := newSigflow(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mode := []string{"dataset", "procedural"}[i%2]
			if _, err := s.Synthesize("Sara Ahmed", mode); err != nil {
				t.Errorf("Synthesize: %v", err)
			}
		}(i)
	}
	wg.Wait()
	require.NoError(t, s.Close())

	rows := readLog(t, filepath.Join(out, "generation_log.csv"))
	assert.Len(t, rows, 1+30)
	files := map[string]bool{}
	for _, row := range rows[1:] {
		files[row[5]] = true
	}
	assert.Len(t, files, 30)
}

func TestClosedHistoryDoesNotFailRequests(t *testing.T) {
	s, out := newSigflow(t, WithSQLite(filepath.Join(t.TempDir(), "audit.db")))
	require.NoError(t, s.history.Close())

	refs, err := s.Synthesize("Ali Khan", "procedural")
	require.NoError(t, err)
	require.Len(t, refs, 3)
	for _, ref := range refs {
		_, err := os.Stat(filepath.Join(out, filepath.Base(ref)))
		assert.NoError(t, err)
	}
	require.NoError(t, s.pipeline.Close())
	assert.Len(t, readLog(t, filepath.Join(out, "generation_log.csv")), 1+3)
}

func TestUnloadableModelDisablesPredict(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "model.onnx")
	classes := filepath.Join(dir, "classes.txt")
	require.NoError(t, os.WriteFile(model, []byte("not a model"), 0o644))
	require.NoError(t, os.WriteFile(classes, []byte("Ali Khan\nSara Ahmed\n"), 0o644))

	s, _ := newSigflow(t, WithModel(model, classes))
	assert.False(t, s.HasClassifier())
	refs, err := s.Synthesize("Ali Khan", "procedural")
	require.NoError(t, err)
	assert.Nil(t, s.Predict(refs, "Ali Khan"))
}

func TestInstancesSharingOutputDirNeverCollide(t *testing.T) {
	out := filepath.Join(t.TempDir(), "output")
	a, _ := newSigflow(t, WithOutputDir(out), WithLogPath(filepath.Join(out, "a.csv")))
	b, _ := newSigflow(t, WithOutputDir(out), WithLogPath(filepath.Join(out, "b.csv")))

	const n = 50
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		refs = map[string]bool{}
	)
	for _, s := range []*Sigflow{a, b} {
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got, err := s.Synthesize("", "procedural")
				if err != nil {
					t.Errorf("Synthesize: %v", err)
					return
				}
				mu.Lock()
				for _, r := range got {
					refs[r] = true
				}
				mu.Unlock()
			}()
		}
	}
	wg.Wait()
	assert.Len(t, refs, 2*n*3)
}
