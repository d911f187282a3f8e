package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/artpar/opgate/core/operation"
	"github.com/artpar/opgate/core/schema"
	"github.com/artpar/opgate/domain/category"
	"github.com/artpar/opgate/pkg/envelope"
	"github.com/artpar/opgate/ports"
)

// CategoryView is the client-facing form of a category.
type CategoryView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Emoji     string    `json:"emoji,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewCategoryView converts a category for output.
func NewCategoryView(c ports.Category) CategoryView {
	return CategoryView{
		ID:        c.ID,
		Name:      c.Name,
		Color:     category.FormatColor(c.Color),
		Emoji:     c.Emoji,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

var categoryName = schema.Object(
	schema.String("name").With(schema.NotEmpty()).Describe("Category name"),
)

// CategoryOperations returns the operations mounted under /category.
func (a *App) CategoryOperations() map[string]operation.Operation {
	return map[string]operation.Operation{
		"getEventCategories": a.Private.
			Describe("List the user's event categories").
			Query(func(call operation.Call) (any, error) {
				u, _ := UserFrom(call.Ctx)
				cats, err := a.Categories.List(call.Context, u.ID)
				if err != nil {
					return nil, err
				}
				views := make([]CategoryView, 0, len(cats))
				for _, c := range cats {
					views = append(views, NewCategoryView(c))
				}
				return map[string]any{"categories": views}, nil
			}),

		"createEventCategory": a.Private.
			Input(schema.Struct[NewCategory]()).
			Describe("Create an event category").
			Mutation(operation.Typed(func(call operation.Call, in NewCategory) (any, error) {
				u, _ := UserFrom(call.Ctx)
				c, err := a.Categories.Create(call.Context, u, in)
				if err != nil {
					return nil, categoryError(err)
				}
				return NewCategoryView(c), nil
			})),

		"deleteCategory": a.Private.
			Input(categoryName).
			Describe("Delete an event category by name").
			Mutation(operation.Typed(func(call operation.Call, in map[string]any) (any, error) {
				u, _ := UserFrom(call.Ctx)
				name, _ := in["name"].(string)
				if err := a.Categories.Delete(call.Context, u.ID, name); err != nil {
					return nil, categoryError(err)
				}
				return map[string]any{"success": true}, nil
			})),

		"pollCategory": a.Private.
			Input(categoryName).
			Describe("Report whether a category has received events").
			Query(operation.Typed(func(call operation.Call, in map[string]any) (any, error) {
				u, _ := UserFrom(call.Ctx)
				name, _ := in["name"].(string)
				has, err := a.Categories.HasEvents(call.Context, u.ID, name)
				if err != nil {
					return nil, categoryError(err)
				}
				return map[string]any{"hasEvents": has}, nil
			})),
	}
}

// categoryError maps service errors to client-visible failures. Unknown
// errors pass through and become 500s.
func categoryError(err error) error {
	switch {
	case errors.Is(err, ErrCategoryExists):
		return envelope.Conflict("A category with this name already exists.")
	case errors.Is(err, ErrCategoryNotFound):
		return envelope.NotFound("category")
	case errors.Is(err, ErrQuotaExceeded):
		return envelope.Forbidden("Category quota reached.")
	case errors.Is(err, category.ErrNameRequired),
		errors.Is(err, category.ErrNameTooLong),
		errors.Is(err, category.ErrNameInvalid),
		errors.Is(err, category.ErrColorInvalid),
		errors.Is(err, category.ErrEmojiInvalid):
		return envelope.Wrap(http.StatusBadRequest, err.Error(), err)
	}
	return err
}
