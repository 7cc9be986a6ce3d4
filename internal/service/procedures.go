package service

import (
	"context"
	"fmt"

	"github.com/deppfellow/ormdemo/internal/errs"
	"github.com/deppfellow/ormdemo/internal/orm"
	"github.com/deppfellow/ormdemo/internal/schema"
	"github.com/rs/zerolog"
)

const SignUpProcedure = "signUp"

// Procedures returns every procedure registered on the client.
func Procedures(log zerolog.Logger) map[string]orm.Procedure {
	return map[string]orm.Procedure{
		SignUpProcedure: SignUp(log),
	}
}

// SignUp creates a user from (email, name).
func SignUp(log zerolog.Logger) orm.Procedure {
	return func(ctx context.Context, c *orm.Client, args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errs.NewValidationError(fmt.Sprintf("%s expects (email, name), got %d arguments", SignUpProcedure, len(args)), nil, nil)
		}
		email, ok := args[0].(string)
		if !ok {
			return nil, errs.NewValidationError(fmt.Sprintf("%s: email must be a string", SignUpProcedure), nil,
				[]errs.FieldError{{Field: "email", Error: "must be a string"}})
		}
		name, ok := args[1].(string)
		if !ok {
			return nil, errs.NewValidationError(fmt.Sprintf("%s: name must be a string", SignUpProcedure), nil,
				[]errs.FieldError{{Field: "name", Error: "must be a string"}})
		}

		log.Info().
			Str("procedure", SignUpProcedure).
			Str("email", email).
			Str("name", name).
			Msg("calling procedure")

		return orm.For[schema.User](c).Create(ctx, &schema.User{Email: email, Name: &name})
	}
}
