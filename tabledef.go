package entity

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/iancoleman/strcase"
)

// KeyField is the identifier column every table carries.
const KeyField = "id"

// TableDef describes how an entity type maps onto its table.
type TableDef struct {
	Name     string
	KeyField string
	Columns  []ColumnInfo
}

// ColumnInfo describes one persisted field.
type ColumnInfo struct {
	Name   string
	Field  string
	Type   reflect.Type
	IsAuto bool
	// IsEntity marks a field holding another Entity; its column stores
	// that entity's id.
	IsEntity bool
	index    []int
}

func (td TableDef) ColumnNames() []string {
	return sliceMap(td.Columns, func(val ColumnInfo) string {
		return val.Name
	})
}

func (td TableDef) insertColumns() []ColumnInfo {
	return sliceFilter(td.Columns, func(val ColumnInfo) bool {
		return !val.IsAuto
	})
}

// column finds a column by its column name or Go field name.
func (td TableDef) column(name string) (ColumnInfo, bool) {
	for _, col := range td.Columns {
		if col.Name == name || col.Field == name {
			return col, true
		}
	}

	return ColumnInfo{}, false
}

var (
	entityType = reflect.TypeOf((*Entity)(nil)).Elem()
	baseType   = reflect.TypeOf(Base{})
	columnDefs sync.Map // reflect.Type -> []ColumnInfo
)

// Describe returns the table definition of e.
func Describe(e Entity) (TableDef, error) {
	cols, err := columnsOf(reflect.TypeOf(e))
	if err != nil {
		return TableDef{}, err
	}

	return TableDef{
		Name:     e.TableName(),
		KeyField: KeyField,
		Columns:  cols,
	}, nil
}

// IsEntityType reports whether values of t are entities that can be
// referenced from a persisted field.
func IsEntityType(t reflect.Type) bool {
	return t != nil && t.Kind() == reflect.Ptr && t.Elem().Kind() == reflect.Struct && t.Implements(entityType)
}

func columnsOf(t reflect.Type) ([]ColumnInfo, error) {
	if cols, ok := columnDefs.Load(t); ok {
		return cols.([]ColumnInfo), nil
	}

	if t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("entity must be a pointer to struct, got %s", t)
	}

	var cols []ColumnInfo
	if err := collectColumns(t.Elem(), nil, &cols); err != nil {
		return nil, fmt.Errorf("%s: %w", t.Elem().Name(), err)
	}

	seen := make(map[string]bool, len(cols))
	for _, col := range cols {
		if strings.EqualFold(col.Name, KeyField) {
			return nil, fmt.Errorf("%s: column %q is reserved", t.Elem().Name(), KeyField)
		}

		if seen[col.Name] {
			return nil, fmt.Errorf("%s: duplicate column %q", t.Elem().Name(), col.Name)
		}
		seen[col.Name] = true
	}

	actual, _ := columnDefs.LoadOrStore(t, cols)
	return actual.([]ColumnInfo), nil
}

func collectColumns(model reflect.Type, index []int, cols *[]ColumnInfo) error {
	for i := 0; i < model.NumField(); i++ {
		field := model.Field(i)
		fieldIndex := append(append([]int(nil), index...), i)
		tag, hasTag := field.Tag.Lookup("db")

		if field.Anonymous {
			if field.Type == baseType {
				continue
			}

			if field.Type.Kind() == reflect.Ptr && field.Type.Elem() == baseType {
				return fmt.Errorf("entity.Base must be embedded by value")
			}

			if field.Type.Kind() == reflect.Struct && !hasTag {
				if err := collectColumns(field.Type, fieldIndex, cols); err != nil {
					return err
				}
				continue
			}
		}

		if !field.IsExported() {
			continue
		}

		name, isAuto, skip := parseDBTag(tag)
		if skip {
			continue
		}

		if name == "" {
			name = strcase.ToSnake(field.Name)
		}

		*cols = append(*cols, ColumnInfo{
			Name:     name,
			Field:    field.Name,
			Type:     field.Type,
			IsAuto:   isAuto,
			IsEntity: IsEntityType(field.Type),
			index:    fieldIndex,
		})
	}

	return nil
}

// parseDBTag reads tags of the form `db:"name,auto"`. A tag of "-" skips
// the field.
func parseDBTag(value string) (name string, isAuto bool, skip bool) {
	if strings.TrimSpace(value) == "-" {
		return "", false, true
	}

	tagArr := strings.Split(value, ",")
	name = strings.TrimSpace(tagArr[0])
	for _, v := range tagArr[1:] {
		varr := strings.Split(strings.TrimSpace(v), "=")
		if !strings.EqualFold(strings.TrimSpace(varr[0]), "auto") {
			continue
		}

		isAuto = true
		if len(varr) > 1 && strings.EqualFold(strings.TrimSpace(varr[1]), "false") {
			isAuto = false
		}
	}

	return
}
