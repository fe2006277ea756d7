package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/bbtalk/internal/filestore"
	"github.com/xxxsen/bbtalk/internal/model"
)

// MediaFetcher resolves a transient platform media id to a content type and
// byte stream. Satisfied by wechat.Client.
type MediaFetcher interface {
	FetchMedia(ctx context.Context, mediaID string) (string, io.ReadCloser, error)
}

// MediaService moves a transient platform media reference into durable
// storage and publishes the resulting URL as a note. The whole pipeline is
// I/O heavy and runs after the webhook already acked, so failures surface
// through the completion tracker rather than the HTTP response.
type MediaService struct {
	fetcher   MediaFetcher
	store     filestore.Store
	talks     *TalkService
	domain    string
	imagePath string
	mediaPath string
}

func NewMediaService(fetcher MediaFetcher, store filestore.Store, talks *TalkService, domain, imagePath, mediaPath string) *MediaService {
	return &MediaService{
		fetcher:   fetcher,
		store:     store,
		talks:     talks,
		domain:    domain,
		imagePath: imagePath,
		mediaPath: mediaPath,
	}
}

// Process runs the full ingestion pipeline for one media message and
// returns the reply text describing the outcome.
func (s *MediaService) Process(ctx context.Context, msgType, mediaID string) string {
	logger := logutil.GetLogger(ctx).With(zap.String("media_id", mediaID), zap.String("msg_type", msgType))

	contentType, body, err := s.fetcher.FetchMedia(ctx, mediaID)
	if err != nil {
		logger.Error("fetch media failed", zap.Error(err))
		return replyTryAgain
	}
	defer body.Close()

	ext := extensionForContentType(contentType)
	scratch, err := os.CreateTemp("", "bbtalk-media-*")
	if err != nil {
		logger.Error("create scratch file failed", zap.Error(err))
		return replyTryAgain
	}
	defer os.Remove(scratch.Name())
	defer scratch.Close()

	size, err := io.Copy(scratch, body)
	if err != nil {
		logger.Error("download media failed", zap.Error(err))
		return replyTryAgain
	}
	if _, err := scratch.Seek(0, io.SeekStart); err != nil {
		logger.Error("rewind scratch file failed", zap.Error(err))
		return replyTryAgain
	}

	key := path.Join(s.categoryPath(msgType), fmt.Sprintf("%d.%s", time.Now().UnixMilli(), ext))
	if err := s.store.Save(ctx, key, scratch, size); err != nil {
		logger.Error("upload media failed", zap.String("key", key), zap.Error(err))
		return replyTryAgain
	}
	publicURL := fmt.Sprintf("https://%s/%s", s.domain, strings.TrimPrefix(key, "/"))
	logger.Info("media stored", zap.String("url", publicURL), zap.Int64("size", size))

	return s.talks.Publish(ctx, publicURL, kindForMsgType(msgType), "")
}

func (s *MediaService) categoryPath(msgType string) string {
	if msgType == model.KindImage {
		return s.imagePath
	}
	return s.mediaPath
}

func kindForMsgType(msgType string) string {
	switch msgType {
	case model.KindImage, model.KindVoice, model.KindVideo, model.KindShortVideo:
		return msgType
	default:
		return model.KindText
	}
}

// extensionForContentType maps the platform-reported content type to a file
// extension. Unrecognized but fetchable types get a generic placeholder
// rather than failing the pipeline.
func extensionForContentType(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	switch strings.TrimSpace(strings.ToLower(contentType)) {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	case "audio/amr":
		return "amr"
	case "audio/speex":
		return "speex"
	case "video/mp4", "video/mpeg4":
		return "mp4"
	default:
		return "bin"
	}
}
