package telegram

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/tg"

	"github.com/itssu4012650/ur-mwe/internal/media"
)

var ErrNoMedia = errors.New("message has no downloadable media")

// MediaFile points at the downloadable file of a chat message.
type MediaFile struct {
	Location tg.InputFileLocationClass
	// Name is the file name stored on the document, or a generated one when the
	// document carries none.
	Name string
	Size int64
	MIME string
}

// MediaFromMessage locates the document or the largest photo size of msg.
func MediaFromMessage(msg *tg.Message) (*MediaFile, error) {
	if msg == nil || msg.Media == nil {
		return nil, ErrNoMedia
	}

	switch m := msg.Media.(type) {
	case *tg.MessageMediaDocument:
		doc, ok := m.Document.(*tg.Document)
		if !ok {
			return nil, ErrNoMedia
		}
		return documentFile(doc), nil
	case *tg.MessageMediaPhoto:
		photo, ok := m.Photo.(*tg.Photo)
		if !ok {
			return nil, ErrNoMedia
		}
		return photoFile(photo)
	default:
		return nil, ErrNoMedia
	}
}

func documentFile(doc *tg.Document) *MediaFile {
	name := ""
	for _, attr := range doc.Attributes {
		if fn, ok := attr.(*tg.DocumentAttributeFilename); ok && fn.FileName != "" {
			name = fn.FileName
			break
		}
	}
	if name == "" {
		kind := "document"
		for _, attr := range doc.Attributes {
			switch attr.(type) {
			case *tg.DocumentAttributeVideo:
				kind = "video"
			case *tg.DocumentAttributeAudio:
				kind = "audio"
			case *tg.DocumentAttributeSticker:
				kind = "sticker"
			}
		}
		name = kind + "_" + strconv.FormatInt(doc.ID, 10) + media.ExtensionFor(doc.MimeType)
	}

	return &MediaFile{
		Location: &tg.InputDocumentFileLocation{
			ID:            doc.ID,
			AccessHash:    doc.AccessHash,
			FileReference: doc.FileReference,
		},
		Name: name,
		Size: doc.Size,
		MIME: doc.MimeType,
	}
}

func photoFile(photo *tg.Photo) (*MediaFile, error) {
	var (
		bestType string
		bestSize int
		bestArea int
	)
	for _, s := range photo.Sizes {
		var (
			typ        string
			w, h, size int
		)
		switch ps := s.(type) {
		case *tg.PhotoSize:
			typ, w, h, size = ps.Type, ps.W, ps.H, ps.Size
		case *tg.PhotoSizeProgressive:
			typ, w, h = ps.Type, ps.W, ps.H
			if n := len(ps.Sizes); n > 0 {
				size = ps.Sizes[n-1]
			}
		default:
			continue
		}
		if area := w * h; area > bestArea {
			bestType, bestSize, bestArea = typ, size, area
		}
	}
	if bestType == "" {
		return nil, ErrNoMedia
	}

	return &MediaFile{
		Location: &tg.InputPhotoFileLocation{
			ID:            photo.ID,
			AccessHash:    photo.AccessHash,
			FileReference: photo.FileReference,
			ThumbSize:     bestType,
		},
		Name: "photo_" + strconv.FormatInt(photo.ID, 10) + ".jpg",
		Size: int64(bestSize),
		MIME: "image/jpeg",
	}, nil
}

// RepliedMessage fetches the message msg replies to.
func (t *Transfer) RepliedMessage(ctx context.Context, peer tg.InputPeerClass, msg *tg.Message) (*tg.Message, error) {
	id := ReplyToID(msg)
	if id == 0 {
		return nil, errors.New("message is not a reply")
	}

	ids := []tg.InputMessageClass{&tg.InputMessageID{ID: id}}

	var (
		res tg.MessagesMessagesClass
		err error
	)
	if ch, ok := peer.(*tg.InputPeerChannel); ok {
		res, err = t.api.ChannelsGetMessages(ctx, &tg.ChannelsGetMessagesRequest{
			Channel: &tg.InputChannel{ChannelID: ch.ChannelID, AccessHash: ch.AccessHash},
			ID:      ids,
		})
	} else {
		res, err = t.api.MessagesGetMessages(ctx, ids)
	}
	if err != nil {
		return nil, fmt.Errorf("get replied message failed: %w", err)
	}

	messages, _, _, err := unpackMessages(res)
	if err != nil {
		return nil, err
	}
	for _, m := range messages {
		if full, ok := m.(*tg.Message); ok && full.ID == id {
			return full, nil
		}
	}
	return nil, fmt.Errorf("replied message %d not found", id)
}

// countingWriterAt reports the bytes written so far after every chunk.
type countingWriterAt struct {
	f       *os.File
	total   int64
	written atomic.Int64
	fn      ProgressFunc
}

func (w *countingWriterAt) WriteAt(p []byte, off int64) (int, error) {
	n, err := w.f.WriteAt(p, off)
	cur := w.written.Add(int64(n))
	if w.fn != nil {
		w.fn(cur, w.total)
	}
	return n, err
}

// DownloadMedia writes file to dest using parallel MTProto requests. The
// partial file is removed on failure.
func (t *Transfer) DownloadMedia(ctx context.Context, file *MediaFile, dest string, progress ProgressFunc) error {
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s failed: %w", dest, err)
	}

	w := &countingWriterAt{f: f, total: file.Size, fn: progress}
	_, err = downloader.NewDownloader().
		Download(t.api, file.Location).
		WithThreads(t.downloadThreads).
		Parallel(ctx, w)

	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dest)
		return fmt.Errorf("download %s failed: %w", file.Name, err)
	}
	return nil
}
