// Package catalog declares the collections of the back office: their grid
// columns, search and type fields, the field copied by the copy action, and
// the validated entity each record decodes into.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/mesh-intelligence/backoffice/pkg/grid"
	"github.com/mesh-intelligence/backoffice/pkg/types"
)

// entity is a tagged struct that converts into row fields.
type entity interface {
	Fields() map[string]any
}

// Entry describes one collection.
type Entry struct {
	Name         string
	Columns      []grid.Column
	SearchFields []string
	TypeField    string
	CopyField    string

	newEntity func() entity
}

// Editable reports whether records of the collection can be created and
// updated from field data.
func (e Entry) Editable() bool {
	return e.newEntity != nil
}

// Catalog holds the collection entries and the validator.
type Catalog struct {
	validate   *validator.Validate
	translator ut.Translator
	entries    map[string]Entry
}

const requiredText = "{0} is required"

// New returns the catalog of standard collections.
func New() *Catalog {
	locale := en.New()
	translator, _ := ut.New(locale, locale).GetTranslator("en")
	validate := validator.New()
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterTranslation("required", translator,
		func(t ut.Translator) error { return t.Add("required", requiredText, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T("required", fe.Field())
			return s
		},
	)

	c := &Catalog{validate: validate, translator: translator, entries: map[string]Entry{}}
	for _, e := range standardEntries() {
		c.entries[e.Name] = e
	}
	return c
}

// Names returns the collection names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entry returns the entry for name.
func (c *Catalog) Entry(name string) (Entry, error) {
	e, ok := c.entries[name]
	if !ok {
		return Entry{}, fmt.Errorf("%q: %w", name, types.ErrCollectionName)
	}
	return e, nil
}

// Options returns view options for the collection backed by store. Page
// size, clipboard and logger are left to the caller.
func (c *Catalog) Options(name string, store types.RecordStore) (grid.Options, error) {
	e, err := c.Entry(name)
	if err != nil {
		return grid.Options{}, err
	}
	opts := grid.Options{
		Collection:   e.Name,
		Columns:      e.Columns,
		SearchFields: e.SearchFields,
		TypeField:    e.TypeField,
		CopyField:    e.CopyField,
		Store:        store,
	}
	if e.Editable() {
		opts.Validate = func(fields map[string]any) error {
			_, err := c.FromFields(name, fields)
			return err
		}
	}
	return opts, nil
}

// Decode parses JSON input for a new record of the collection, validates
// it, and returns the row fields to store. Unknown keys are rejected.
func (c *Catalog) Decode(name string, data []byte) (map[string]any, error) {
	e, err := c.editable(name)
	if err != nil {
		return nil, err
	}
	ent := e.newEntity()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(ent); err != nil {
		return nil, decodeError(name, err)
	}
	return c.check(ent)
}

// Merge applies a JSON patch to the fields of an existing row, validates the
// result, and returns the complete row fields to store.
func (c *Catalog) Merge(name string, current types.Row, patch []byte) (map[string]any, error) {
	e, err := c.editable(name)
	if err != nil {
		return nil, err
	}
	ent := e.newEntity()
	if err := fill(ent, current.Fields); err != nil {
		return nil, decodeError(name, err)
	}
	dec := json.NewDecoder(bytes.NewReader(patch))
	dec.DisallowUnknownFields()
	if err := dec.Decode(ent); err != nil {
		return nil, decodeError(name, err)
	}
	return c.check(ent)
}

// FromFields validates generic row fields against the collection's entity
// and returns them normalised. Fields the entity does not declare are
// ignored.
func (c *Catalog) FromFields(name string, fields map[string]any) (map[string]any, error) {
	e, err := c.editable(name)
	if err != nil {
		return nil, err
	}
	ent := e.newEntity()
	if err := fill(ent, fields); err != nil {
		return nil, decodeError(name, err)
	}
	return c.check(ent)
}

func (c *Catalog) editable(name string) (Entry, error) {
	e, err := c.Entry(name)
	if err != nil {
		return Entry{}, err
	}
	if !e.Editable() {
		return Entry{}, fmt.Errorf("edit %s: %w", name, types.ErrUnsupported)
	}
	return e, nil
}

func (c *Catalog) check(ent entity) (map[string]any, error) {
	if err := c.validate.Struct(ent); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, err
		}
		fields := make([]types.FieldError, len(verrs))
		for i, fe := range verrs {
			fields[i] = types.FieldError{Field: fe.Field(), Message: fe.Translate(c.translator)}
		}
		return nil, types.NewValidationError(fields...)
	}
	return ent.Fields(), nil
}

// fill decodes generic fields into ent through JSON.
func fill(ent entity, fields map[string]any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, ent)
}

func decodeError(name string, err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return types.NewValidationError(types.FieldError{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("%s must be a %s", typeErr.Field, jsonKind(typeErr.Type)),
		})
	}
	if strings.HasPrefix(err.Error(), "json: unknown field") {
		return fmt.Errorf("%s %s: %w", name, strings.TrimPrefix(err.Error(), "json: "), types.ErrUnknownField)
	}
	return fmt.Errorf("decode %s: %w: %v", name, types.ErrValidation, err)
}

func jsonKind(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "whole number"
	case reflect.String:
		return "string"
	}
	return t.String()
}

// dateText renders time fields as dates with minutes.
func dateText(field string) func(types.Row) string {
	return func(r types.Row) string {
		if t, ok := r.Get(field).(time.Time); ok {
			if t.IsZero() {
				return ""
			}
			return t.Local().Format("2006-01-02 15:04")
		}
		return r.String(field)
	}
}
