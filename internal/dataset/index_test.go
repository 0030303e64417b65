package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/sigflow/internal/random"
)

func allExist(string) bool { return true }

func TestParseGroupsByNormalizedName(t *testing.T) {
	table := "filename,name\n" +
		"a/1.png, Ali Khan \n" +
		"a/2.png,ALI KHAN\n" +
		"s/1.png,Sara\n"
	idx, err := Parse(strings.NewReader(table), "/data", allExist)
	require.NoError(t, err)

	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, []string{"/data/a/1.png", "/data/a/2.png"}, idx.Paths("ali khan"))
	assert.Equal(t, []string{"/data/s/1.png"}, idx.Paths("  SARA"))
}

func TestParseColumnOrderAndExtraColumns(t *testing.T) {
	table := "\ufeffname,id,filename\nSara,7,s.png\n"
	idx, err := Parse(strings.NewReader(table), "root", allExist)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("root", "s.png")}, idx.Paths("sara"))
}

func TestParseDropsMissingFiles(t *testing.T) {
	table := "filename,name\nkeep.png,Sara\ngone.png,Sara\ngone2.png,Omar\n"
	exists := func(p string) bool { return strings.HasSuffix(p, "keep.png") }

	idx, err := Parse(strings.NewReader(table), "", exists)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.png"}, idx.Paths("Sara"))
	assert.Empty(t, idx.Paths("Omar"))
	assert.Equal(t, 1, idx.Len())
}

func TestParseErrors(t *testing.T) {
	for name, table := range map[string]string{
		"empty":          "",
		"missing column": "file,name\nx.png,Sara\n",
		"short row":      "filename,name\nx.png\n",
		"bad quoting":    "filename,name\n\"x.png,Sara\n",
	} {
		_, err := Parse(strings.NewReader(table), "", allExist)
		assert.Error(t, err, name)
	}
}

func TestLoadDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, 0, Load(dir, filepath.Join(dir, "labels.csv")).Len())

	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("nothing,useful\n1,2\n"), 0o644))
	assert.Equal(t, 0, Load(dir, bad).Len())
}

func TestLoadChecksStorage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ali1.png"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "ali2.png"), 0o755))
	labels := filepath.Join(dir, "labels.csv")
	require.NoError(t, os.WriteFile(labels, []byte("filename,name\nali1.png,Ali\nali2.png,Ali\nali3.png,Ali\n"), 0o644))

	idx := Load(dir, labels)
	assert.Equal(t, []string{filepath.Join(dir, "ali1.png")}, idx.Paths("ali"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "ali khan", Normalize("  Ali KHAN\t"))
	assert.Equal(t, Normalize("ÉMILE"), Normalize("émile"))
}

func TestPickUnknownName(t *testing.T) {
	idx := New(map[string][]string{"sara": {"s1"}})
	assert.Nil(t, idx.Pick("omar", random.New(1)))
	assert.Nil(t, New(nil).Pick("", random.New(1)))
}

func TestPickSingleReferenceRepeats(t *testing.T) {
	idx := New(map[string][]string{"Sara": {"s1"}})
	assert.Equal(t, []string{"s1", "s1", "s1"}, idx.Pick("SARA", random.New(1)))
}

func TestPickTwoReferencesCycle(t *testing.T) {
	idx := New(map[string][]string{"sara": {"s1", "s2"}})
	assert.Equal(t, []string{"s1", "s2", "s1"}, idx.Pick("sara", random.New(1)))
}

func TestPickExactlyThreeIsPermutation(t *testing.T) {
	idx := New(map[string][]string{"sara": {"s1", "s2", "s3"}})
	rng := random.New(2)
	for i := 0; i < 50; i++ {
		assert.ElementsMatch(t, []string{"s1", "s2", "s3"}, idx.Pick("sara", rng))
	}
}

func TestPickLargePoolDistinctAndCovering(t *testing.T) {
	pool := []string{"p0", "p1", "p2", "p3", "p4", "p5", "p6"}
	idx := New(map[string][]string{"ali": pool})
	rng := random.New(3)

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		got := idx.Pick("ali", rng)
		require.Len(t, got, 3)
		assert.NotEqual(t, got[0], got[1])
		assert.NotEqual(t, got[0], got[2])
		assert.NotEqual(t, got[1], got[2])
		for _, p := range got {
			seen[p] = true
		}
	}
	assert.Len(t, seen, len(pool))
	assert.Equal(t, pool, idx.Paths("ali"), "picking must not reorder the index")
}
