package orm

import (
	"gorm.io/gorm"
	"gorm.io/gorm/callbacks"
)

const (
	callbackBeforeUpdate = "orm:before_update"
	callbackAfterCreate  = "orm:after_create"
	callbackAfterUpdate  = "orm:after_update"
	callbackAfterDelete  = "orm:after_delete"
)

// registerCallbacks installs the mutation observers' entry points on db.
// Re-registering on the same *gorm.DB replaces the previous callbacks.
//
// The create hook runs before associations are saved so a parent insert is
// reported ahead of its nested children.
func registerCallbacks(db *gorm.DB) error {
	cb := db.Callback()

	if cb.Create().Get(callbackAfterCreate) != nil {
		if err := cb.Create().Replace(callbackAfterCreate, afterMutation(ActionCreate)); err != nil {
			return err
		}
	} else if err := cb.Create().After("gorm:create").Before("gorm:save_after_associations").
		Register(callbackAfterCreate, afterMutation(ActionCreate)); err != nil {
		return err
	}

	if cb.Update().Get(callbackBeforeUpdate) != nil {
		if err := cb.Update().Replace(callbackBeforeUpdate, pinAssignments); err != nil {
			return err
		}
	} else if err := cb.Update().After("gorm:save_before_associations").Before("gorm:update").
		Register(callbackBeforeUpdate, pinAssignments); err != nil {
		return err
	}

	if cb.Update().Get(callbackAfterUpdate) != nil {
		if err := cb.Update().Replace(callbackAfterUpdate, afterMutation(ActionUpdate)); err != nil {
			return err
		}
	} else if err := cb.Update().After("gorm:update").Register(callbackAfterUpdate, afterMutation(ActionUpdate)); err != nil {
		return err
	}

	if cb.Delete().Get(callbackAfterDelete) != nil {
		if err := cb.Delete().Replace(callbackAfterDelete, afterMutation(ActionDelete)); err != nil {
			return err
		}
	} else if err := cb.Delete().After("gorm:delete").Register(callbackAfterDelete, afterMutation(ActionDelete)); err != nil {
		return err
	}

	return nil
}

// pinAssignments builds the SET clause ahead of gorm:update. gorm:update
// removes a SET it builds itself once the statement ran, but keeps one that
// is already present, so the after hook can still read the assignments.
func pinAssignments(db *gorm.DB) {
	if db.Error != nil || db.Statement.Schema == nil {
		return
	}
	if _, ok := db.Statement.Clauses["SET"]; ok {
		return
	}
	st, ok := hookStateFrom(db.Statement.Context)
	if !ok || len(st.observers) == 0 {
		return
	}
	if set := callbacks.ConvertToAssignments(db.Statement); len(set) != 0 {
		db.Statement.AddClause(set)
	}
}

func afterMutation(action Action) func(*gorm.DB) {
	return func(db *gorm.DB) {
		if db.Error != nil || db.DryRun || db.Statement.Schema == nil || db.RowsAffected == 0 {
			return
		}
		st, ok := hookStateFrom(db.Statement.Context)
		if !ok || len(st.observers) == 0 {
			return
		}

		args := MutationArgs{
			Model:     db.Statement.Schema.Name,
			Action:    action,
			QueryNode: nodeFromStatement(db.Statement, action),
			Auth:      st.auth,
		}
		for _, o := range st.observers {
			o.AfterEntityMutation(db.Statement.Context, args)
		}
	}
}
