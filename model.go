package entity

// Entity is a type whose rows can be inserted, updated, deleted and loaded
// by id. Concrete types embed Base and name their table:
//
//	type Author struct {
//		entity.Base
//		Name string `db:"name"`
//	}
//
//	func (a *Author) TableName() string { return "authors" }
type Entity interface {
	TableName() string
	base() *Base
}

// entityPtr constrains PT to a pointer to T that is an Entity.
type entityPtr[T any] interface {
	*T
	Entity
}

// Change describes a value change on an entity. Field is "id" when the
// identifier was assigned.
type Change struct {
	Entity Entity
	Field  string
}
