// Package orm is a thin, schema-typed client over GORM.
//
// It adds the pieces the demo exercises on top of plain GORM:
//
//   - computed fields: read-only columns populated from SQL expressions
//     and usable in filters,
//   - procedures: named functions invoked through the client,
//   - plugins: OnQuery interceptors wrapped around every model operation
//     and AfterEntityMutation observers fed from GORM's create/update/delete
//     callbacks with the statement's VALUES/SET clauses,
//   - a Prisma-style Where filter with a raw expression escape hatch.
//
// Query planning, SQL generation and pooling stay in GORM and the driver.
// A Client is immutable; WithAuth, Use and Unuse return modified copies.
package orm
