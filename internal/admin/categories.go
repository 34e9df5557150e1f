package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/api"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/validator"
)

// SaveCategory creates the category when id is empty, otherwise updates it,
// then uploads cover if given. The cover URL is always sent empty: covers are
// only set through the upload endpoint.
func (c *Console) SaveCategory(ctx context.Context, id string, in domain.CategoryInput, cover *api.Upload) (domain.Category, error) {
	if err := c.Authorize(); err != nil {
		return domain.Category{}, err
	}
	in.CoverImageURL = ""
	if err := validator.Validate(in); err != nil {
		return domain.Category{}, err
	}

	var (
		cat domain.Category
		err error
	)
	if id == "" {
		cat, err = c.api.CreateCategory(ctx, in)
	} else {
		cat, err = c.api.UpdateCategory(ctx, id, in)
	}
	if err != nil {
		return domain.Category{}, fmt.Errorf("save category: %w", err)
	}
	c.logger.InfoContext(ctx, "category saved",
		slog.String("category_id", cat.ID),
		slog.Bool("created", id == ""),
	)

	if cover != nil {
		withCover, err := c.api.UploadCategoryCover(ctx, cat.ID, *cover)
		if err != nil {
			c.refreshAfterMutation(ctx, "category")
			return cat, fmt.Errorf("upload category cover: %w", err)
		}
		cat = withCover
	}

	c.refreshAfterMutation(ctx, "category")
	return cat, nil
}

// DeleteCategory removes a category. A refusal because products still
// reference it is reported as ErrCategoryInUse.
func (c *Console) DeleteCategory(ctx context.Context, id string) error {
	if err := c.Authorize(); err != nil {
		return err
	}
	if err := c.api.DeleteCategory(ctx, id); err != nil {
		if isIntegrityViolation(err) {
			return fmt.Errorf("delete category %s: %w", id, errors.Join(ErrCategoryInUse, err))
		}
		return fmt.Errorf("delete category %s: %w", id, err)
	}
	c.logger.InfoContext(ctx, "category deleted", slog.String("category_id", id))
	c.refreshAfterMutation(ctx, "category")
	return nil
}
