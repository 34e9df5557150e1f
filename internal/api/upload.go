package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"

	"github.com/utafrali/storefront/internal/domain"
)

// Multipart field names expected by the backend.
const (
	CoverField = "cover"
	ImageField = "image"
)

// Upload is one file selected for upload.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReadUpload loads a local file into an Upload, sniffing its content type.
func ReadUpload(path string) (Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Upload{}, fmt.Errorf("read upload %s: %w", path, err)
	}
	return Upload{
		Filename:    filepath.Base(path),
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}

// UploadCategoryCover posts a cover image for category id.
func (c *Client) UploadCategoryCover(ctx context.Context, id string, up Upload) (domain.Category, error) {
	var cat domain.Category
	err := c.upload(ctx, "/category/{id}/upload-cover", "/category/"+id+"/upload-cover", CoverField, up, &cat)
	return cat, err
}

// UploadProductImage posts one image for product id.
func (c *Client) UploadProductImage(ctx context.Context, id string, up Upload) (domain.ProductImage, error) {
	var img domain.ProductImage
	err := c.upload(ctx, "/product/{id}/upload-image", "/product/"+id+"/upload-image", ImageField, up, &img)
	return img, err
}

func (c *Client) upload(ctx context.Context, route, path, field string, up Upload, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, up.Filename))
	ct := up.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(up.Data); err != nil {
		return fmt.Errorf("write multipart part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart body: %w", err)
	}

	return c.call(ctx, http.MethodPost, route, path, nil, bytes.NewReader(buf.Bytes()), mw.FormDataContentType(), out)
}
