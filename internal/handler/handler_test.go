package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itssu4012650/ur-mwe/internal/media"
	"github.com/itssu4012650/ur-mwe/internal/messaging"
	"github.com/itssu4012650/ur-mwe/internal/telegram"
	"github.com/itssu4012650/ur-mwe/pkg/worker"
)

type recordingEditor struct {
	mu    sync.Mutex
	texts []string
}

func (e *recordingEditor) Edit(ctx context.Context, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.texts = append(e.texts, text)
	return nil
}

func (e *recordingEditor) all() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.texts...)
}

func (e *recordingEditor) last() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.texts) == 0 {
		return ""
	}
	return e.texts[len(e.texts)-1]
}

type fakeTransport struct {
	mu      sync.Mutex
	replied *tg.Message
	sent    []telegram.OutgoingFile
	replyTo []int
	sendErr error
}

func (f *fakeTransport) RepliedMessage(ctx context.Context, peer tg.InputPeerClass, msg *tg.Message) (*tg.Message, error) {
	if f.replied == nil {
		return nil, errors.New("message not found")
	}
	return f.replied, nil
}

func (f *fakeTransport) DownloadMedia(ctx context.Context, file *telegram.MediaFile, dest string, progress telegram.ProgressFunc) error {
	if err := os.WriteFile(dest, []byte("data"), 0o644); err != nil {
		return err
	}
	progress(4, 4)
	return nil
}

func (f *fakeTransport) SendFile(ctx context.Context, peer tg.InputPeerClass, replyTo int, file telegram.OutgoingFile, progress telegram.ProgressFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, file)
	f.replyTo = append(f.replyTo, replyTo)
	progress(10, 10)
	return nil
}

type fakeProber struct {
	meta media.Metadata
	err  error
}

func (p fakeProber) Probe(ctx context.Context, file string) (media.Metadata, error) {
	return p.meta, p.err
}

func testOptions(t *testing.T) Options {
	pool := worker.NewPool(2)
	t.Cleanup(pool.Stop)
	return Options{
		DownloadDir:  filepath.Join(t.TempDir(), "downloads"),
		PollInterval: 10 * time.Millisecond,
		Pool:         pool,
	}
}

func newCommand(name, arg string, replyTo int) (*Command, *recordingEditor) {
	ed := &recordingEditor{}
	msg := &tg.Message{ID: 100, Out: true}
	if replyTo != 0 {
		msg.ReplyTo = &tg.MessageReplyHeader{ReplyToMsgID: replyTo}
	}
	return &Command{
		ID:     "test",
		Msg:    msg,
		Peer:   &tg.InputPeerSelf{},
		Name:   name,
		Arg:    arg,
		Editor: ed,
	}, ed
}

func documentMessage(name string, size int64) *tg.Message {
	return &tg.Message{
		ID: 50,
		Media: &tg.MessageMediaDocument{
			Document: &tg.Document{
				ID:       1,
				MimeType: "application/zip",
				Size:     size,
				Attributes: []tg.DocumentAttributeClass{
					&tg.DocumentAttributeFilename{FileName: name},
				},
			},
		},
	}
}

func TestDownloadFromURL(t *testing.T) {
	content := bytes.Repeat([]byte("x"), 64*1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "f.bin", time.Time{}, bytes.NewReader(content))
	}))
	defer srv.Close()

	opts := testOptions(t)
	h := NewDownloadHandler(&fakeTransport{}, opts)
	cmd, ed := newCommand("download", srv.URL+" | sub/file.bin", 0)

	require.NoError(t, h.Handle(context.Background(), cmd))

	target := filepath.Join(opts.DownloadDir, "sub", "file.bin")
	texts := ed.all()
	assert.Equal(t, messaging.Processing, texts[0])
	assert.Equal(t, messaging.DownloadedTo(target), ed.last())

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

// slowServer streams content in 1 KiB chunks with a pause after each.
func slowServer(t *testing.T, content []byte, pause time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodGet {
			return
		}
		flusher := w.(http.Flusher)
		for off := 0; off < len(content); off += 1024 {
			end := min(off+1024, len(content))
			if _, err := w.Write(content[off:end]); err != nil {
				return
			}
			flusher.Flush()
			select {
			case <-r.Context().Done():
				return
			case <-time.After(pause):
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDownloadFromURLReportsStatus(t *testing.T) {
	content := bytes.Repeat([]byte("s"), 32*1024)
	srv := slowServer(t, content, 10*time.Millisecond)

	opts := testOptions(t)
	opts.ProgressInterval = 20 * time.Millisecond
	h := NewDownloadHandler(&fakeTransport{}, opts)
	cmd, ed := newCommand("download", srv.URL+" | slow.bin", 0)

	require.NoError(t, h.Handle(context.Background(), cmd))

	var status []string
	for _, text := range ed.all() {
		if strings.Contains(text, "<code>ETA</code>") {
			status = append(status, text)
		}
	}
	require.NotEmpty(t, status)
	assert.True(t, strings.HasPrefix(status[0], "<code>Name</code> : <code>slow.bin</code>\nStatus\n"))
	assert.Equal(t, messaging.DownloadedTo(filepath.Join(opts.DownloadDir, "slow.bin")), ed.last())
}

func TestDownloadFromURLNotEnoughDiskSpace(t *testing.T) {
	content := bytes.Repeat([]byte("d"), 64*1024)
	srv := slowServer(t, content, 10*time.Millisecond)

	opts := testOptions(t)
	opts.DiskFree = func(string) (uint64, error) { return 1, nil }
	h := NewDownloadHandler(&fakeTransport{}, opts)
	cmd, ed := newCommand("download", srv.URL+" | full.bin", 0)

	err := h.Handle(context.Background(), cmd)
	assert.Error(t, err)
	assert.Equal(t, messaging.NotEnoughDiskSpace, ed.last())
	assert.NoFileExists(t, filepath.Join(opts.DownloadDir, "full.bin"))
}

func TestDownloadWithoutPool(t *testing.T) {
	opts := testOptions(t)
	opts.Pool = nil
	tr := &fakeTransport{replied: documentMessage("inline.zip", 4)}
	h := NewDownloadHandler(tr, opts)
	assert.Nil(t, h.opts.Pool)

	cmd, ed := newCommand("download", "", 50)
	require.NoError(t, h.Handle(context.Background(), cmd))

	texts := ed.all()
	require.Len(t, texts, 3)
	assert.True(t, strings.HasPrefix(texts[1], "[DOWNLOAD]\nFile Name: <code>inline.zip</code>"))
	assert.Equal(t, messaging.DownloadedTo(filepath.Join(opts.DownloadDir, "inline.zip")), ed.last())
}

func TestDownloadIncorrectURL(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	h := NewDownloadHandler(&fakeTransport{}, testOptions(t))
	cmd, ed := newCommand("download", srv.URL+"/missing|out.bin", 0)

	err := h.Handle(context.Background(), cmd)
	assert.Error(t, err)
	assert.Equal(t, messaging.IncorrectURL(srv.URL+"/missing"), ed.last())
}

func TestDownloadRejectsEscapingName(t *testing.T) {
	h := NewDownloadHandler(&fakeTransport{}, testOptions(t))
	cmd, ed := newCommand("download", "http://example.com/a | ../../etc/passwd", 0)

	err := h.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, ErrBadFileName)
	assert.Equal(t, messaging.IncorrectFileName, ed.last())
}

func TestDownloadWithoutReply(t *testing.T) {
	opts := testOptions(t)
	h := NewDownloadHandler(&fakeTransport{}, opts)
	cmd, ed := newCommand("download", "", 0)

	require.NoError(t, h.Handle(context.Background(), cmd))
	assert.Equal(t, []string{messaging.Processing, messaging.ReplyToDownload}, ed.all())
	assert.DirExists(t, opts.DownloadDir)
}

func TestDownloadFromReply(t *testing.T) {
	opts := testOptions(t)
	tr := &fakeTransport{replied: documentMessage("archive.zip", 4)}
	h := NewDownloadHandler(tr, opts)

	cmd, ed := newCommand("download", "", 50)
	require.NoError(t, h.Handle(context.Background(), cmd))
	first := filepath.Join(opts.DownloadDir, "archive.zip")
	assert.Equal(t, messaging.DownloadedTo(first), ed.last())
	assert.FileExists(t, first)

	cmd, ed = newCommand("download", "", 50)
	require.NoError(t, h.Handle(context.Background(), cmd))
	second := filepath.Join(opts.DownloadDir, "archive_1.zip")
	assert.Equal(t, messaging.DownloadedTo(second), ed.last())
	assert.FileExists(t, second)
}

func TestDownloadReplyWithoutMedia(t *testing.T) {
	tr := &fakeTransport{replied: &tg.Message{ID: 50, Message: "just text"}}
	h := NewDownloadHandler(tr, testOptions(t))

	cmd, ed := newCommand("download", "", 50)
	require.NoError(t, h.Handle(context.Background(), cmd))
	assert.Equal(t, messaging.NoMediaInReply, ed.last())
}

func TestDownloadReplyFetchFails(t *testing.T) {
	h := NewDownloadHandler(&fakeTransport{}, testOptions(t))

	cmd, ed := newCommand("download", "", 50)
	assert.Error(t, h.Handle(context.Background(), cmd))
	assert.Equal(t, "message not found", ed.last())
}

func TestDownloadNotEnoughDiskSpace(t *testing.T) {
	opts := testOptions(t)
	opts.DiskFree = func(string) (uint64, error) { return 10, nil }
	tr := &fakeTransport{replied: documentMessage("big.iso", 1000)}
	h := NewDownloadHandler(tr, opts)

	cmd, ed := newCommand("download", "", 50)
	assert.Error(t, h.Handle(context.Background(), cmd))
	assert.Equal(t, messaging.NotEnoughDiskSpace, ed.last())
	assert.NoFileExists(t, filepath.Join(opts.DownloadDir, "big.iso"))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestUploadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "a")
	writeFile(t, filepath.Join(dir, "sub", "b.jpg"), "b")
	writeFile(t, filepath.Join(dir, "clip.MP4"), "v")
	writeFile(t, filepath.Join(dir, ThumbName), "t")

	tr := &fakeTransport{}
	meta := media.Metadata{Duration: 5 * time.Second, Width: 640, Height: 480}
	h := NewUploadHandler(tr, fakeProber{meta: meta}, testOptions(t))

	cmd, ed := newCommand("uploadir", dir, 0)
	require.NoError(t, h.UploadDir(context.Background(), cmd))

	assert.Contains(t, ed.all(), messaging.FoundFiles(3))
	assert.Equal(t, messaging.UploadedFiles(3), ed.last())

	require.Len(t, tr.sent, 3)
	byName := map[string]telegram.OutgoingFile{}
	for _, f := range tr.sent {
		byName[filepath.Base(f.Path)] = f
		assert.Equal(t, filepath.Base(f.Path), f.Caption)
		assert.False(t, f.ForceDocument)
	}
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"a.txt", "b.jpg", "clip.MP4"}, names)

	video := byName["clip.MP4"]
	require.NotNil(t, video.Video)
	assert.Equal(t, meta, *video.Video)
	assert.Equal(t, filepath.Join(dir, ThumbName), video.Thumb)
	assert.Nil(t, byName["a.txt"].Video)

	for _, id := range tr.replyTo {
		assert.Equal(t, 100, id)
	}

	assert.NoFileExists(t, filepath.Join(dir, "a.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "sub", "b.jpg"))
	assert.NoFileExists(t, filepath.Join(dir, "clip.MP4"))
	assert.FileExists(t, filepath.Join(dir, ThumbName))
}

func TestUploadDirProbeFailureUsesZeros(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "clip.mp4"), "v")

	tr := &fakeTransport{}
	h := NewUploadHandler(tr, fakeProber{err: errors.New("ffprobe missing")}, testOptions(t))

	cmd, _ := newCommand("uploadir", dir, 0)
	require.NoError(t, h.UploadDir(context.Background(), cmd))

	require.Len(t, tr.sent, 1)
	require.NotNil(t, tr.sent[0].Video)
	assert.Equal(t, media.Metadata{}, *tr.sent[0].Video)
	assert.Empty(t, tr.sent[0].Thumb)
}

func TestUploadDirNotFound(t *testing.T) {
	h := NewUploadHandler(&fakeTransport{}, fakeProber{}, testOptions(t))

	cmd, ed := newCommand("uploadir", filepath.Join(t.TempDir(), "nope"), 0)
	err := h.UploadDir(context.Background(), cmd)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{messaging.DirectoryNotFound}, ed.all())
}

func TestUploadDirStopsOnError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "a")

	tr := &fakeTransport{sendErr: errors.New("FLOOD_WAIT")}
	h := NewUploadHandler(tr, fakeProber{}, testOptions(t))

	cmd, ed := newCommand("uploadir", dir, 0)
	assert.Error(t, h.UploadDir(context.Background(), cmd))
	assert.Equal(t, "FLOOD_WAIT", ed.last())
	assert.FileExists(t, filepath.Join(dir, "a.txt"))
}

func TestUploadDirSkipsProtectedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.env"), "APP_HASH=secret")
	writeFile(t, filepath.Join(dir, "notes.txt"), "n")

	tr := &fakeTransport{}
	opts := testOptions(t)
	opts.Protected = []string{"config.env"}
	h := NewUploadHandler(tr, fakeProber{}, opts)

	cmd, ed := newCommand("uploadir", dir, 0)
	require.NoError(t, h.UploadDir(context.Background(), cmd))
	assert.Equal(t, messaging.UploadedFiles(1), ed.last())
	assert.FileExists(t, filepath.Join(dir, "config.env"))
}

func TestUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	writeFile(t, path, "pdf")

	tr := &fakeTransport{}
	h := NewUploadHandler(tr, fakeProber{}, testOptions(t))

	cmd, ed := newCommand("upload", path, 0)
	require.NoError(t, h.Upload(context.Background(), cmd))

	assert.Equal(t, messaging.Processing, ed.all()[0])
	assert.Equal(t, messaging.UploadedSuccess, ed.last())
	require.Len(t, tr.sent, 1)
	assert.True(t, tr.sent[0].ForceDocument)
	assert.Equal(t, path, tr.sent[0].Path)
	assert.Equal(t, []int{100}, tr.replyTo)
	assert.FileExists(t, path)
}

func TestUploadProtected(t *testing.T) {
	sessionDir := t.TempDir()
	sessionFile := filepath.Join(sessionDir, "session.json")
	writeFile(t, sessionFile, "{}")

	opts := testOptions(t)
	opts.Protected = []string{sessionFile, "config.env"}
	opts.ProtectedDirs = []string{sessionDir}
	tr := &fakeTransport{}
	h := NewUploadHandler(tr, fakeProber{}, opts)

	for _, arg := range []string{"config.env", sessionFile, filepath.Join(sessionDir, "other")} {
		cmd, ed := newCommand("upload", arg, 0)
		err := h.Upload(context.Background(), cmd)
		assert.ErrorIs(t, err, ErrNotPermitted, arg)
		assert.Equal(t, messaging.NotPermitted, ed.last(), arg)
	}
	assert.Empty(t, tr.sent)
}

func TestUploadMissingFile(t *testing.T) {
	h := NewUploadHandler(&fakeTransport{}, fakeProber{}, testOptions(t))

	cmd, ed := newCommand("upload", filepath.Join(t.TempDir(), "ghost.bin"), 0)
	assert.ErrorIs(t, h.Upload(context.Background(), cmd), ErrNotFound)
	assert.Equal(t, messaging.FileNotFound, ed.last())

	cmd, ed = newCommand("upload", t.TempDir(), 0)
	assert.ErrorIs(t, h.Upload(context.Background(), cmd), ErrNotFound)
	assert.Equal(t, messaging.FileNotFound, ed.last())
}

func TestHelp(t *testing.T) {
	h := NewBasicHandler("!", t.TempDir())

	cmd, ed := newCommand("help", "upload", 0)
	require.NoError(t, h.Help(context.Background(), cmd))
	assert.Contains(t, ed.last(), "<code>!upload</code>")
}
