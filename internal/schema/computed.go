package schema

import (
	"github.com/deppfellow/ormdemo/internal/orm"
	"gorm.io/gorm/clause"
)

// ComputedFields returns the expressions for every computed field.
func ComputedFields() orm.ComputedFields {
	return orm.ComputedFields{
		"Post": {
			"newTitle": func(eb orm.ExprBuilder) clause.Expression {
				return eb.Ref("title")
			},
			"isNotPublished": func(eb orm.ExprBuilder) clause.Expression {
				return eb.Not(eb.Ref("published"))
			},
		},
		"User": {
			"postCount": func(eb orm.ExprBuilder) clause.Expression {
				return eb.CountWhere("posts", "author_id", eb.Ref("id"))
			},
		},
		"Profile": {
			"agePlus2": func(eb orm.ExprBuilder) clause.Expression {
				return eb.Binary(eb.Ref("age"), "+", 2)
			},
		},
	}
}
