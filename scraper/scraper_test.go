package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/withexxa/hn-whoshiring/api"
	"github.com/withexxa/hn-whoshiring/models"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// fakeFetcher serves items from memory and counts item fetches
type fakeFetcher struct {
	mutex   sync.Mutex
	users   map[string][]int
	items   map[int]*models.Item
	failIDs map[int]bool
	fetches int
}

func (f *fakeFetcher) FetchUser(ctx context.Context, name string) (*models.User, error) {
	submitted, ok := f.users[name]
	if !ok {
		return nil, fmt.Errorf("user %s not found", name)
	}
	return &models.User{ID: name, Submitted: submitted}, nil
}

func (f *fakeFetcher) FetchMany(ctx context.Context, ids []int) ([]*models.Item, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	items := make([]*models.Item, len(ids))
	for i, id := range ids {
		f.fetches++
		if f.failIDs[id] {
			return nil, &api.FetchError{ID: id, Err: errors.New("boom")}
		}
		items[i] = f.items[id]
	}
	return items, nil
}

func (f *fakeFetcher) fetchCount() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.fetches
}

// memoryManifest is an in-memory Manifest
type memoryManifest struct {
	threads map[int]models.ArchivedThread
}

func newMemoryManifest() *memoryManifest {
	return &memoryManifest{threads: make(map[int]models.ArchivedThread)}
}

func (m *memoryManifest) GetArchivedThread(threadID int) (models.ArchivedThread, bool, error) {
	t, ok := m.threads[threadID]
	return t, ok, nil
}

func (m *memoryManifest) IsThreadArchived(threadID int) (bool, error) {
	_, ok := m.threads[threadID]
	return ok, nil
}

func (m *memoryManifest) GetThreadByDir(dir string) (models.ArchivedThread, bool, error) {
	for _, t := range m.threads {
		if t.Dir == dir {
			return t, true, nil
		}
	}
	return models.ArchivedThread{}, false, nil
}

func (m *memoryManifest) MarkThreadArchived(thread models.ArchivedThread) error {
	m.threads[thread.ThreadID] = thread
	return nil
}

func hiringThread() *models.Item {
	return &models.Item{
		ID:    101,
		Type:  "story",
		Title: "Ask HN: Who is hiring? (Jan 2024)",
		Time:  1704067200,
		Kids:  []int{201, 202},
	}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		users: map[string][]int{"whoishiring": {100, 101}},
		items: map[int]*models.Item{
			100: {ID: 100, Title: "Ask HN: Who wants to be hired? (Jan 2024)", Time: 1704067200},
			101: hiringThread(),
			201: {ID: 201, Type: "comment", Text: "Acme | Go | Remote", Time: 1704070000, Parent: 101},
			202: {ID: 202, Type: "comment", Text: "Initech | Rust | Onsite", Time: 1704071000, Parent: 101},
		},
		failIDs: map[int]bool{},
	}
}

func TestClassifiers(t *testing.T) {
	tests := []struct {
		title     string
		substring ThreadKind
		title2    ThreadKind
	}{
		{"Ask HN: Who is hiring? (January 2024)", JobOfferThread, JobOfferThread},
		{"Ask HN: Who is HIRING? (March 2012)", JobOfferThread, JobOfferThread},
		{"Ask HN: Who wants to be hired? (January 2024)", OtherThread, JobSeekerThread},
		{"Ask HN: Freelancer? Seeking freelancer? (January 2024)", OtherThread, OtherThread},
		{"Ask HN: Who wants to be hired, and who is hiring?", JobOfferThread, JobSeekerThread},
		{"Show HN: something else", OtherThread, OtherThread},
	}

	for _, tc := range tests {
		t.Run(tc.title, func(t *testing.T) {
			assert.Equal(t, tc.substring, SubstringClassifier{}.Classify(tc.title))
			assert.Equal(t, tc.title2, TitleClassifier{}.Classify(tc.title))
		})
	}
}

func TestNewClassifier(t *testing.T) {
	c, err := NewClassifier("")
	require.NoError(t, err)
	assert.IsType(t, TitleClassifier{}, c)

	c, err = NewClassifier("Substring")
	require.NoError(t, err)
	assert.IsType(t, SubstringClassifier{}, c)

	_, err = NewClassifier("regex")
	assert.Error(t, err)
}

func TestQualifies(t *testing.T) {
	d := NewDiscovery(nil, SubstringClassifier{}, nil, t.TempDir(), testLogger())

	tests := []struct {
		name     string
		thread   *models.Item
		expected bool
	}{
		{"Live hiring thread", hiringThread(), true},
		{"Deleted", &models.Item{Title: "Who is hiring?", Kids: []int{1}, Deleted: true}, false},
		{"Dead", &models.Item{Title: "Who is hiring?", Kids: []int{1}, Dead: true}, false},
		{"No kids", &models.Item{Title: "Who is hiring?"}, false},
		{"Title without hiring", &models.Item{Title: "Who wants to be hired?", Kids: []int{1}}, false},
		{"Nil", nil, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, d.Qualifies(tc.thread))
		})
	}
}

func TestThreadDir(t *testing.T) {
	dir := ThreadDir("output", hiringThread())
	assert.Equal(t, filepath.Join("output", "2024-01-01", "Ask_HN:_Who_is_hiring?_(Jan_2024)"), dir)

	slashed := &models.Item{Title: "Who is hiring? Jan/Feb", Time: 1704067200}
	assert.Equal(t, filepath.Join("output", "2024-01-01", "Who_is_hiring?_Jan_Feb"), ThreadDir("output", slashed))
}

func TestDiscoverWritesAllThreads(t *testing.T) {
	out := t.TempDir()
	fetcher := newFakeFetcher()
	d := NewDiscovery(fetcher, TitleClassifier{}, []string{"whoishiring"}, out, testLogger())

	threads, err := d.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{101}, ThreadIDs(threads))

	all, err := ReadJSONLines(filepath.Join(out, ThreadsFile))
	require.NoError(t, err)
	assert.Equal(t, []int{100, 101}, ThreadIDs(all))
}

func TestArchiveThreadIsIdempotent(t *testing.T) {
	out := t.TempDir()
	fetcher := newFakeFetcher()
	manifest := newMemoryManifest()
	archiver := NewArchiver(fetcher, manifest, out, "run-1", testLogger())

	result, err := archiver.ArchiveThread(context.Background(), hiringThread())
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, 2, result.CommentCount)
	assert.Equal(t, 2, fetcher.fetchCount())

	commentsPath := filepath.Join(result.Dir, CommentsFile)
	before, err := os.ReadFile(commentsPath)
	require.NoError(t, err)

	result, err = archiver.ArchiveThread(context.Background(), hiringThread())
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, 2, fetcher.fetchCount(), "second run must not fetch")

	after, err := os.ReadFile(commentsPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	entry, found, _ := manifest.GetArchivedThread(101)
	require.True(t, found)
	assert.Equal(t, "run-1", entry.RunID)
	assert.Equal(t, 2, entry.CommentCount)
}

func TestArchiveThreadSkipsPreexistingArchive(t *testing.T) {
	out := t.TempDir()
	fetcher := newFakeFetcher()
	manifest := newMemoryManifest()

	dir := ThreadDir(out, hiringThread())
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, CommentsFile), []byte("{\"id\":201}\n"), 0644))

	archiver := NewArchiver(fetcher, manifest, out, "run-2", testLogger())
	result, err := archiver.ArchiveThread(context.Background(), hiringThread())
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Zero(t, fetcher.fetchCount())

	content, err := os.ReadFile(filepath.Join(dir, CommentsFile))
	require.NoError(t, err)
	assert.Equal(t, "{\"id\":201}\n", string(content))

	_, found, _ := manifest.GetArchivedThread(101)
	assert.True(t, found, "existing archive is backfilled into the manifest")
}

func TestArchiveThreadFailureLeavesNoArchive(t *testing.T) {
	out := t.TempDir()
	fetcher := newFakeFetcher()
	fetcher.failIDs[202] = true

	archiver := NewArchiver(fetcher, nil, out, "run-1", testLogger())
	_, err := archiver.ArchiveThread(context.Background(), hiringThread())
	require.Error(t, err)

	var fetchErr *api.FetchError
	assert.True(t, errors.As(err, &fetchErr))

	dir := ThreadDir(out, hiringThread())
	_, err = os.Stat(filepath.Join(dir, CommentsFile))
	assert.True(t, os.IsNotExist(err))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}

	// the thread record is still written and a later run completes the archive
	_, err = os.Stat(filepath.Join(dir, ThreadFile))
	assert.NoError(t, err)

	delete(fetcher.failIDs, 202)
	result, err := archiver.ArchiveThread(context.Background(), hiringThread())
	require.NoError(t, err)
	assert.False(t, result.Skipped)
}

func TestCommentArchiveRoundTrip(t *testing.T) {
	out := t.TempDir()
	fetcher := newFakeFetcher()
	archiver := NewArchiver(fetcher, nil, out, "run-1", testLogger())

	result, err := archiver.ArchiveThread(context.Background(), hiringThread())
	require.NoError(t, err)

	comments, err := ReadComments(result.Dir)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, []int{201, 202}, ThreadIDs(comments))
	assert.Equal(t, fetcher.items[201].Text, comments[0].Text)
	assert.Equal(t, fetcher.items[202].Time, comments[1].Time)
}

func TestPipelineIsolatesThreadFailures(t *testing.T) {
	out := t.TempDir()
	fetcher := newFakeFetcher()
	fetcher.users["whoishiring"] = []int{100, 101, 102}
	fetcher.items[102] = &models.Item{ID: 102, Title: "Ask HN: Who is hiring? (Feb 2024)", Time: 1706745600, Kids: []int{203}}
	fetcher.items[203] = &models.Item{ID: 203, Type: "comment", Text: "x", Time: 1706746000}
	fetcher.failIDs[201] = true

	p := NewPipeline(fetcher, newMemoryManifest(), TitleClassifier{}, []string{"whoishiring"}, out, testLogger())
	summary, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, summary.Discovered)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Archived)
	assert.NotEmpty(t, summary.RunID)

	_, err = os.Stat(filepath.Join(out, "2024-02-01", "Ask_HN:_Who_is_hiring?_(Feb_2024)", CommentsFile))
	assert.NoError(t, err)
}

// TestEndToEnd runs discovery and archiving against a mock Hacker News API
func TestEndToEnd(t *testing.T) {
	bodies := map[string]string{
		"/user/whoishiring.json": `{"id":"whoishiring","submitted":[100,101]}`,
		"/item/100.json":         `{"id":100,"title":"Ask HN: Who wants to be hired (Jan 2024)","kids":[],"deleted":false}`,
		"/item/101.json":         `{"id":101,"title":"Ask HN: Who is hiring? (Jan 2024)","kids":[201,202],"deleted":false,"dead":false,"time":1704067200}`,
		"/item/201.json":         `{"id":201,"type":"comment","text":"Acme | Remote","time":1704070000}`,
		"/item/202.json":         `{"id":202,"type":"comment","text":"Initech &amp; Co<p>Onsite","time":1704071000}`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "output")
	client := api.NewHackerNewsAPI(api.Options{BaseURL: srv.URL, MaxInFlight: 4}, testLogger())

	d := NewDiscovery(client, SubstringClassifier{}, []string{"whoishiring"}, out, testLogger())
	threads, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int{101}, ThreadIDs(threads))

	archiver := NewArchiver(client, nil, out, "run-1", testLogger())
	_, err = archiver.ArchiveThread(context.Background(), threads[0])
	require.NoError(t, err)

	path := filepath.Join(out, "2024-01-01", "Ask_HN:_Who_is_hiring?_(Jan_2024)", CommentsFile)
	comments, err := ReadJSONLines(path)
	require.NoError(t, err)
	assert.Equal(t, []int{201, 202}, ThreadIDs(comments))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, bodies["/item/201.json"]+"\n"+bodies["/item/202.json"]+"\n", string(content))

	thread, err := os.ReadFile(filepath.Join(out, "2024-01-01", "Ask_HN:_Who_is_hiring?_(Jan_2024)", ThreadFile))
	require.NoError(t, err)
	assert.Contains(t, string(thread), "\n    \"id\": 101,")
}
