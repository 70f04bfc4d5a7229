package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"babagram/internal/model"
)

// maxJSONBody caps request bodies; 1MB is plenty for JSON
const maxJSONBody = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json field names rather than Go names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads and validates a JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body", model.ErrValidation)
	}
	return validateStruct(dst)
}

func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Errorf("%w: %s failed on %s", model.ErrValidation, fe.Namespace(), fe.Tag())
	}
	return fmt.Errorf("%w: %v", model.ErrValidation, err)
}

// objectIDParam parses a hex ObjectID from a URL parameter.
func objectIDParam(r *http.Request, name string) (primitive.ObjectID, error) {
	raw := chi.URLParam(r, name)
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", model.ErrInvalidContentID, raw)
	}
	return id, nil
}

// contentRefParam parses {contentType}/{id} URL parameters.
func contentRefParam(r *http.Request) (model.ContentRef, error) {
	return model.ParseContentRef(chi.URLParam(r, "contentType"), chi.URLParam(r, "id"))
}

// pageParams reads the cursor and limit query parameters.
func pageParams(r *http.Request) (*string, int, error) {
	q := r.URL.Query()
	var cursor *string
	if c := q.Get("cursor"); c != "" {
		cursor = &c
	}
	limit := 0
	if l := q.Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			return nil, 0, fmt.Errorf("%w: invalid limit parameter", model.ErrValidation)
		}
		limit = parsed
	}
	return cursor, limit, nil
}
