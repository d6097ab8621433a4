package telegram

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/gotd/td/telegram/uploader"
	"github.com/gotd/td/tg"

	"github.com/itssu4012650/ur-mwe/internal/media"
	"github.com/itssu4012650/ur-mwe/pkg/logger"
)

// Photos above this size are rejected by Telegram and go out as documents.
const maxPhotoSize = 10 * 1024 * 1024

// OutgoingFile describes a local file to send to a chat.
type OutgoingFile struct {
	Path          string
	Caption       string
	ForceDocument bool
	// Video is set for files sent with a streaming video attribute.
	Video *media.Metadata
	// Thumb is an optional local thumbnail, used for documents and videos.
	Thumb string
}

type uploadProgress struct {
	fn ProgressFunc
}

func (p uploadProgress) Chunk(ctx context.Context, state uploader.ProgressState) error {
	if p.fn != nil {
		p.fn(state.Uploaded, state.Total)
	}
	return nil
}

// SendFile uploads file and posts it to peer as a reply to replyTo.
func (t *Transfer) SendFile(ctx context.Context, peer tg.InputPeerClass, replyTo int, file OutgoingFile, progress ProgressFunc) error {
	info, err := os.Stat(file.Path)
	if err != nil {
		return fmt.Errorf("stat %s failed: %w", file.Path, err)
	}

	up := uploader.NewUploader(t.api).
		WithThreads(t.uploadThreads).
		WithProgress(uploadProgress{fn: progress})

	inputFile, err := up.FromPath(ctx, file.Path)
	if err != nil {
		return fmt.Errorf("upload %s failed: %w", file.Path, err)
	}

	var thumb tg.InputFileClass
	if file.Thumb != "" {
		thumb, err = uploader.NewUploader(t.api).FromPath(ctx, file.Thumb)
		if err != nil {
			logger.Warn("Thumbnail upload failed", "thumb", file.Thumb, "error", err)
			thumb = nil
		}
	}

	inputMedia := buildInputMedia(file, info.Size(), inputFile, thumb)

	req := &tg.MessagesSendMediaRequest{
		Peer:     peer,
		Media:    inputMedia,
		Message:  file.Caption,
		RandomID: rand.Int63(),
	}
	if replyTo != 0 {
		req.ReplyTo = &tg.InputReplyToMessage{ReplyToMsgID: replyTo}
	}

	if _, err := t.api.MessagesSendMedia(ctx, req); err != nil {
		return fmt.Errorf("send %s failed: %w", filepath.Base(file.Path), err)
	}
	return nil
}

func buildInputMedia(file OutgoingFile, size int64, inputFile, thumb tg.InputFileClass) tg.InputMediaClass {
	name := filepath.Base(file.Path)

	if !file.ForceDocument && file.Video == nil && media.IsPhoto(name) && size <= maxPhotoSize {
		return &tg.InputMediaUploadedPhoto{File: inputFile}
	}

	attrs := []tg.DocumentAttributeClass{
		&tg.DocumentAttributeFilename{FileName: name},
	}
	if file.Video != nil {
		attrs = append(attrs, &tg.DocumentAttributeVideo{
			SupportsStreaming: true,
			RoundMessage:      false,
			Duration:          file.Video.Duration.Seconds(),
			W:                 file.Video.Width,
			H:                 file.Video.Height,
		})
	}

	doc := &tg.InputMediaUploadedDocument{
		File:       inputFile,
		MimeType:   media.DetectMIME(file.Path),
		Attributes: attrs,
		ForceFile:  file.ForceDocument,
	}
	if thumb != nil {
		doc.Thumb = thumb
	}
	return doc
}
