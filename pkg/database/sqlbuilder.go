package database

import "github.com/huandu/go-sqlbuilder"

// Struct wraps sqlbuilder.Struct pinned to the PostgreSQL flavor so DAO
// packages get $N placeholders without repeating the flavor on every builder.
type Struct struct {
	*sqlbuilder.Struct
}

func NewStruct(v any) *Struct {
	return &Struct{sqlbuilder.NewStruct(v).For(sqlbuilder.PostgreSQL)}
}
