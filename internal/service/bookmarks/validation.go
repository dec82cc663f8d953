package bookmarks

import (
	"errors"
	"fmt"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"treemark/internal/config"
	"treemark/internal/domain"
	bookmarkSvc "treemark/internal/domain/services/bookmarks"
)

// absoluteURL accepts URLs with a scheme and host, e.g. https://react.dev.
var absoluteURL = validation.By(func(value interface{}) error {
	v, _ := validation.Indirect(value)
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("must be an absolute URL")
	}
	return nil
})

// validateCreateRequest validates a bookmark creation request
func validateCreateRequest(req *bookmarkSvc.CreateBookmarkRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Title,
			validation.Required,
			validation.RuneLength(1, config.MaxTitleLength),
		),
		validation.Field(&req.URL,
			validation.When(!req.IsFolder, validation.Required),
			validation.When(req.IsFolder, validation.Empty.Error("folders cannot have a url")),
			validation.RuneLength(0, config.MaxURLLength),
			absoluteURL,
		),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

// validateUpdateRequest validates a bookmark update request. Only present
// fields are checked.
func validateUpdateRequest(req *bookmarkSvc.UpdateBookmarkRequest) error {
	rules := []*validation.FieldRules{
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.ID, validation.Required.Error("bookmark id is required")),
	}

	if req.Title != nil {
		rules = append(rules,
			validation.Field(&req.Title,
				validation.Required,
				validation.RuneLength(1, config.MaxTitleLength),
			),
		)
	}
	if req.URL != nil {
		rules = append(rules,
			validation.Field(&req.URL,
				validation.RuneLength(0, config.MaxURLLength),
				absoluteURL,
			),
		)
	}

	if err := validation.ValidateStruct(req, rules...); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

// validateMoveRequest validates a move request
func validateMoveRequest(req *bookmarkSvc.MoveBookmarkRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.ID, validation.Required.Error("bookmark id is required")),
		validation.Field(&req.Position,
			validation.Nil.When(req.ParentID == nil).Error("root entries keep insertion order; position requires a parentId"),
			validation.Min(0),
		),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}
