package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"campaignstudio/internal/ids"
	"campaignstudio/internal/imagedata"
	"campaignstudio/internal/media"
	"campaignstudio/internal/models"
	"campaignstudio/internal/storage"
)

const MaxUploadBytes = 10 << 20

type UploadInput struct {
	UserID       string
	PostID       string
	File         io.Reader
	Filename     string
	DeclaredType string
	Prompt       string
}

type UploadService struct {
	posts  *PostService
	assets AssetStore
	store  ObjectStore
	log    zerolog.Logger
}

func NewUploadService(posts *PostService, assets AssetStore, store ObjectStore, log zerolog.Logger) *UploadService {
	return &UploadService{posts: posts, assets: assets, store: store, log: log}
}

// Upload stores a user supplied image and appends it to the post's
// collection as an unselected candidate.
func (s *UploadService) Upload(ctx context.Context, in UploadInput) (PostView, error) {
	if in.File == nil {
		return PostView{}, fmt.Errorf("%w: file is required", ErrInvalidInput)
	}

	current, err := s.posts.Get(ctx, in.UserID, in.PostID)
	if err != nil {
		return PostView{}, err
	}
	if !current.Post.Status.Editable() {
		return PostView{}, fmt.Errorf("%w: post is %s", ErrInvalidTransition, current.Post.Status)
	}

	data, err := io.ReadAll(io.LimitReader(in.File, MaxUploadBytes+1))
	if err != nil {
		return PostView{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return PostView{}, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}
	if len(data) > MaxUploadBytes {
		return PostView{}, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidInput, MaxUploadBytes)
	}

	kind, err := media.Sniff(data)
	if err != nil {
		return PostView{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if declared := media.DeclaredType(in.DeclaredType); declared != "" && declared != "application/octet-stream" && declared != kind.MIME {
		return PostView{}, fmt.Errorf("%w: declared %s but file is %s", ErrInvalidInput, declared, kind.MIME)
	}
	if kind.Format == media.FormatSVG {
		if data, err = media.SanitizeSVG(data); err != nil {
			return PostView{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}

	assetID := ids.New()
	key := storage.ObjectKey("uploads/"+in.UserID, assetID, kind.Ext(), s.posts.now())
	obj, err := s.store.PutObject(ctx, s.store.ImagesBucket(), key, data, kind.MIME)
	if err != nil {
		return PostView{}, fmt.Errorf("store upload: %w", err)
	}

	sum := sha256.Sum256(data)
	if err := s.assets.Create(ctx, models.Asset{
		ID:        assetID,
		UserID:    in.UserID,
		PostID:    in.PostID,
		Bucket:    obj.Bucket,
		ObjectKey: obj.Key,
		URL:       obj.URL,
		MIME:      kind.MIME,
		SizeBytes: obj.Size,
		Source:    models.AssetSourceUpload,
		Status:    models.AssetStatusActive,
		Checksum:  sum[:],
	}); err != nil {
		return PostView{}, fmt.Errorf("record asset: %w", err)
	}

	view, err := s.posts.AttachUploaded(ctx, in.UserID, in.PostID, uploadDescriptor(obj.URL, in, kind, data))
	if err != nil {
		// The object stays referenced by an asset row; cleanup purges it.
		if markErr := s.assets.MarkDeleted(ctx, obj.URL); markErr != nil {
			s.log.Warn().Err(markErr).Str("asset_id", assetID).Msg("mark orphaned upload failed")
		}
		return PostView{}, err
	}

	s.log.Info().
		Str("post_id", in.PostID).
		Str("asset_id", assetID).
		Str("mime", kind.MIME).
		Int("size", len(data)).
		Msg("image uploaded")
	return view, nil
}

func uploadDescriptor(url string, in UploadInput, kind media.Kind, data []byte) imagedata.ImageDescriptor {
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		prompt = strings.TrimSuffix(path.Base(in.Filename), path.Ext(in.Filename))
	}
	if prompt == "" || prompt == "." || prompt == "/" {
		prompt = imagedata.DefaultPrompt
	}

	md := &imagedata.Metadata{Style: imagedata.DefaultStyle, Service: "upload"}
	if w, h, err := rasterSize(kind, data); err == nil {
		md.Width = imagedata.NumericDimension(w)
		md.Height = imagedata.NumericDimension(h)
	}
	return imagedata.ImageDescriptor{URL: url, Prompt: prompt, Metadata: md}
}

var errNoRaster = errors.New("format has no decodable raster")

func rasterSize(kind media.Kind, data []byte) (int, int, error) {
	if !kind.Raster() {
		return 0, 0, errNoRaster
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	b := img.Bounds()
	return b.Dx(), b.Dy(), nil
}
