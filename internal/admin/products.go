package admin

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/utafrali/storefront/internal/api"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/validator"
)

// PartialSaveError reports a product that was saved while one of its image
// uploads failed.
type PartialSaveError struct {
	Product domain.Product
	Err     error
}

func (e *PartialSaveError) Error() string {
	return "product saved, but image upload failed: " + api.ErrorMessage(e.Err)
}

func (e *PartialSaveError) Unwrap() error { return e.Err }

// SaveProduct creates the product when id is empty, otherwise updates it,
// then uploads every image concurrently. If the save succeeds but an upload
// fails the saved product is returned with a *PartialSaveError.
func (c *Console) SaveProduct(ctx context.Context, id string, in domain.ProductInput, images []api.Upload) (domain.Product, []domain.ProductImage, error) {
	if err := c.Authorize(); err != nil {
		return domain.Product{}, nil, err
	}
	if err := validator.Validate(in); err != nil {
		return domain.Product{}, nil, err
	}

	var (
		p   domain.Product
		err error
	)
	if id == "" {
		p, err = c.api.CreateProduct(ctx, in)
	} else {
		p, err = c.api.UpdateProduct(ctx, id, in)
	}
	if err != nil {
		return domain.Product{}, nil, fmt.Errorf("save product: %w", err)
	}
	c.logger.InfoContext(ctx, "product saved",
		slog.String("product_id", p.ID),
		slog.Bool("created", id == ""),
		slog.Int("images", len(images)),
	)

	uploaded, err := c.uploadImages(ctx, p.ID, images)
	c.refreshAfterMutation(ctx, "product")
	if err != nil {
		return p, uploaded, &PartialSaveError{Product: p, Err: err}
	}
	return p, uploaded, nil
}

func (c *Console) uploadImages(ctx context.Context, productID string, images []api.Upload) ([]domain.ProductImage, error) {
	if len(images) == 0 {
		return nil, nil
	}
	results := make([]domain.ProductImage, len(images))
	ok := make([]bool, len(images))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelUploads)
	for i, img := range images {
		g.Go(func() error {
			res, err := c.api.UploadProductImage(gctx, productID, img)
			if err != nil {
				return fmt.Errorf("upload %s: %w", img.Filename, err)
			}
			results[i], ok[i] = res, true
			return nil
		})
	}
	err := g.Wait()

	uploaded := make([]domain.ProductImage, 0, len(images))
	for i := range results {
		if ok[i] {
			uploaded = append(uploaded, results[i])
		}
	}
	if err != nil {
		c.logger.WarnContext(ctx, "image upload failed",
			slog.String("product_id", productID),
			slog.Int("uploaded", len(uploaded)),
			slog.Int("requested", len(images)),
			slog.String("error", err.Error()),
		)
	}
	return uploaded, err
}

// DeleteProduct removes a product.
func (c *Console) DeleteProduct(ctx context.Context, id string) error {
	if err := c.Authorize(); err != nil {
		return err
	}
	if err := c.api.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	c.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))
	c.refreshAfterMutation(ctx, "product")
	return nil
}

// DeleteProductImage removes one image.
func (c *Console) DeleteProductImage(ctx context.Context, id string) error {
	if err := c.Authorize(); err != nil {
		return err
	}
	if err := c.api.DeleteProductImage(ctx, id); err != nil {
		return fmt.Errorf("delete product image %s: %w", id, err)
	}
	c.logger.InfoContext(ctx, "product image deleted", slog.String("image_id", id))
	return nil
}
