package adapter

import (
	"context"

	"github.com/roach88/convexauth/internal/engine"
	"github.com/roach88/convexauth/internal/where"
)

// Create inserts a record and returns its stored view. The insert is read
// back so the returned view always reflects what a subsequent find would
// see. A uniqueness violation surfaces as a ConflictError naming the field.
//
// When the model is the user table and an OnUserCreate hook is registered,
// the hook runs inside the same transaction as the insert; a hook error
// rolls the insert back.
func (a *Adapter) Create(ctx context.Context, model string, data map[string]any, selectFields []string) (map[string]any, error) {
	if err := a.checkModel("create", model); err != nil {
		return nil, err
	}

	stored := transformInput(data)
	for k := range stored {
		if !a.schema.HasField(model, k) {
			return nil, unsupported("create", model, "undeclared field %q", k)
		}
	}

	var view map[string]any
	err := a.eng.Update(ctx, func(w engine.Writer) error {
		id, err := w.Insert(model, stored)
		if err != nil {
			return wrapConflict(model, err)
		}

		doc, err := w.Get(model, id)
		if err != nil {
			return err
		}

		if model == userTable && a.hooks.OnUserCreate != nil {
			if err := a.hooks.OnUserCreate(ctx, w, doc); err != nil {
				return err
			}
		}

		view = applySelect(transformOutput(doc), selectFields)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Update resolves the where-list to exactly one record, patches only the
// fields present in updates, and returns the patched view. A missing target
// raises a NotFoundError; callers that tolerate absence check IsNotFound.
func (a *Adapter) Update(ctx context.Context, model string, whereRaw []where.Raw, updates map[string]any) (map[string]any, error) {
	list, err := a.parseWhere("update", model, whereRaw)
	if err != nil {
		return nil, err
	}

	patch := transformInput(updates)
	for k := range patch {
		if !a.schema.HasField(model, k) {
			return nil, unsupported("update", model, "undeclared field %q", k)
		}
	}

	var view map[string]any
	err = a.eng.Update(ctx, func(w engine.Writer) error {
		doc, err := a.resolveOne(w, model, "update", list)
		if err != nil {
			return err
		}
		if doc == nil {
			return &NotFoundError{Model: model}
		}

		if err := w.Patch(model, doc.ID, patch); err != nil {
			return wrapConflict(model, err)
		}

		updated, err := w.Get(model, doc.ID)
		if err != nil {
			return err
		}
		view = transformOutput(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// UpdateMany is not part of the supported surface; no caller issues it.
func (a *Adapter) UpdateMany(ctx context.Context, model string, whereRaw []where.Raw, updates map[string]any) (int, error) {
	return 0, unsupported("updateMany", model, "updateMany is not implemented")
}

// Delete resolves the where-list to at most one record and removes it.
// Deleting a record that does not exist is a no-op, never an error.
//
// For the user table, a registered OnUserDelete hook runs inside the same
// transaction before the row is removed; a hook error aborts the delete.
func (a *Adapter) Delete(ctx context.Context, model string, whereRaw []where.Raw) error {
	list, err := a.parseWhere("delete", model, whereRaw)
	if err != nil {
		return err
	}

	return a.eng.Update(ctx, func(w engine.Writer) error {
		doc, err := a.resolveOne(w, model, "delete", list)
		if err != nil {
			return err
		}
		if doc == nil {
			return nil // idempotent
		}

		if model == userTable && a.hooks.OnUserDelete != nil {
			if err := a.hooks.OnUserDelete(ctx, w, doc); err != nil {
				return err
			}
		}

		return w.Remove(model, doc.ID)
	})
}

// DeleteMany removes every record matching an allow-listed bulk shape and
// returns the removed count. Supported shapes:
//
//   - one equality clause on an indexed field (delete all rows referencing
//     a user, e.g. session.userId = X)
//   - one lt/lte clause on an indexed field (delete expired rows, e.g.
//     verification.expiresAt < now)
//
// Both delegate to the pagination driver, which commits one page per
// transaction; see bulkDelete for the atomicity trade-off.
func (a *Adapter) DeleteMany(ctx context.Context, model string, whereRaw []where.Raw) (int, error) {
	list, err := a.parseWhere("deleteMany", model, whereRaw)
	if err != nil {
		return 0, err
	}

	if len(list.Clauses) != 1 {
		return 0, unsupported("deleteMany", model, "exactly one clause is required")
	}

	var ref engine.IndexRef
	switch c := list.Clauses[0].(type) {
	case where.Eq:
		if !a.schema.IsIndexedField(model, c.Name) {
			return 0, unsupported("deleteMany", model, "field %q is not indexed", c.Name)
		}
		ref = engine.IndexRef{Field: c.Name, Cmp: engine.CmpEq, Value: c.Value}
	case where.Range:
		if c.Op != where.OpLt && c.Op != where.OpLte {
			return 0, unsupported("deleteMany", model, "only lt/lte thresholds are supported")
		}
		if !a.schema.IsIndexedField(model, c.Name) {
			return 0, unsupported("deleteMany", model, "field %q is not indexed", c.Name)
		}
		cmp := engine.CmpLt
		if c.Op == where.OpLte {
			cmp = engine.CmpLte
		}
		ref = engine.IndexRef{Field: c.Name, Cmp: cmp, Value: c.Value}
	default:
		return 0, unsupported("deleteMany", model, "only equality and threshold clauses are supported")
	}

	return a.bulkDelete(ctx, model, ref, a.bulkPageSize)
}

// resolveOne resolves a where-list to at most one record for update/delete.
// Accepted shapes: any single clause (routed through the regular query
// plans) and the allow-listed multi-clause shape of an id equality plus
// secondary AND'd filters, resolved by id lookup then verifying the
// secondary clauses hold.
func (a *Adapter) resolveOne(r engine.Reader, model, op string, list where.List) (*engine.Document, error) {
	if len(list.Clauses) <= 1 {
		return a.findOneDoc(r, model, list)
	}

	if list.Connector != where.And {
		return nil, unsupported(op, model, "multi-clause OR cannot resolve a single record")
	}

	var idClause *where.Eq
	rest := make([]where.Clause, 0, len(list.Clauses)-1)
	for _, c := range list.Clauses {
		if eq, ok := c.(where.Eq); ok && eq.Name == "id" && idClause == nil {
			eq := eq
			idClause = &eq
			continue
		}
		rest = append(rest, c)
	}
	if idClause == nil {
		return nil, unsupported(op, model, "multi-clause where requires an id equality clause")
	}

	id, ok := idClause.Value.(string)
	if !ok {
		return nil, unsupported(op, model, "id clause must carry a string value")
	}

	doc, err := r.Get(model, id)
	if err != nil || doc == nil {
		return nil, err
	}
	if !evalDoc(doc, where.List{Connector: where.And, Clauses: rest}) {
		return nil, nil
	}
	return doc, nil
}
