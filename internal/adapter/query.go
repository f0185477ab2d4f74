package adapter

import (
	"context"
	"sort"

	"github.com/roach88/convexauth/internal/engine"
	"github.com/roach88/convexauth/internal/where"
)

// FindOne returns the first record matching the where-list, or nil (not an
// error) when nothing matches. selectFields, when non-empty, projects the
// result onto the named fields.
func (a *Adapter) FindOne(ctx context.Context, model string, whereRaw []where.Raw, selectFields []string) (map[string]any, error) {
	list, err := a.parseWhere("findOne", model, whereRaw)
	if err != nil {
		return nil, err
	}

	var view map[string]any
	err = a.eng.View(ctx, func(r engine.Reader) error {
		doc, err := a.findOneDoc(r, model, list)
		if err != nil {
			return err
		}
		if doc != nil {
			view = applySelect(transformOutput(doc), selectFields)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// findOneDoc dispatches a single-record retrieval per the matched plan.
func (a *Adapter) findOneDoc(r engine.Reader, model string, list where.List) (*engine.Document, error) {
	plan := a.planQuery(model, list)

	switch plan.kind {
	case planDirectID:
		return r.Get(model, plan.id)
	case planSingleIndex:
		if plan.unique {
			return r.IndexUnique(model, plan.field, plan.value)
		}
		return r.IndexFirst(model, plan.field, plan.value)
	case planCompound:
		return r.CompoundFirst(model, plan.compound.Name, plan.compoundValues)
	case planRange:
		docs, err := r.IndexScan(model, plan.field, plan.rangeCmp, plan.value, 1)
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 {
			return nil, nil
		}
		return &docs[0], nil
	default:
		return a.scanFirst(r, model, list)
	}
}

// FindMany returns every record matching the where-list, sorted and limited
// per opts. A nil where-list matches the whole table. offset is not a
// supported shape and is rejected outright.
func (a *Adapter) FindMany(ctx context.Context, model string, whereRaw []where.Raw, opts FindManyOptions) ([]map[string]any, error) {
	if opts.Offset != 0 {
		return nil, unsupported("findMany", model, "offset pagination is not supported")
	}
	if opts.SortBy != nil && opts.SortBy.Direction != "asc" && opts.SortBy.Direction != "desc" {
		return nil, unsupported("findMany", model, "sortBy direction %q", opts.SortBy.Direction)
	}

	list, err := a.parseWhere("findMany", model, whereRaw)
	if err != nil {
		return nil, err
	}

	var docs []engine.Document
	err = a.eng.View(ctx, func(r engine.Reader) error {
		docs, err = a.findManyDocs(r, model, list, opts)
		return err
	})
	if err != nil {
		return nil, err
	}

	if opts.SortBy != nil {
		sortDocuments(docs, *opts.SortBy)
	}
	if opts.Limit > 0 && len(docs) > opts.Limit {
		docs = docs[:opts.Limit]
	}

	views := make([]map[string]any, len(docs))
	for i := range docs {
		views[i] = transformOutput(&docs[i])
	}
	return views, nil
}

func (a *Adapter) findManyDocs(r engine.Reader, model string, list where.List, opts FindManyOptions) ([]engine.Document, error) {
	plan := a.planQuery(model, list)

	// The limit can be pushed into an index scan only when no re-sort
	// happens afterwards; otherwise it must be applied to the sorted set.
	pushLimit := 0
	if opts.SortBy == nil {
		pushLimit = opts.Limit
	}

	switch plan.kind {
	case planDirectID:
		doc, err := r.Get(model, plan.id)
		if err != nil || doc == nil {
			return nil, err
		}
		return []engine.Document{*doc}, nil
	case planSingleIndex:
		if plan.unique {
			doc, err := r.IndexUnique(model, plan.field, plan.value)
			if err != nil || doc == nil {
				return nil, err
			}
			return []engine.Document{*doc}, nil
		}
		return r.IndexScan(model, plan.field, engine.CmpEq, plan.value, pushLimit)
	case planCompound:
		doc, err := r.CompoundFirst(model, plan.compound.Name, plan.compoundValues)
		if err != nil || doc == nil {
			return nil, err
		}
		return []engine.Document{*doc}, nil
	case planRange:
		return r.IndexScan(model, plan.field, plan.rangeCmp, plan.value, pushLimit)
	default:
		return a.scanFilter(r, model, list, pushLimit)
	}
}

// Count returns the number of records matching the where-list. Only the
// trivial shapes are served: no where-list at all (table count) and a single
// equality clause on an indexed field. Everything else is rejected; the
// callers this adapter serves issue nothing richer, and a full-scan count
// would mask that a new shape appeared.
func (a *Adapter) Count(ctx context.Context, model string, whereRaw []where.Raw) (int, error) {
	list, err := a.parseWhere("count", model, whereRaw)
	if err != nil {
		return 0, err
	}

	var n int
	err = a.eng.View(ctx, func(r engine.Reader) error {
		if list.Empty() {
			n, err = r.Count(model)
			return err
		}

		plan := a.planQuery(model, list)
		if plan.kind != planSingleIndex {
			return unsupported("count", model, "only equality on an indexed field is countable")
		}
		n, err = r.IndexCount(model, plan.field, plan.value)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// scanFirst streams the table page by page and returns the first document
// the evaluator accepts.
func (a *Adapter) scanFirst(r engine.Reader, model string, list where.List) (*engine.Document, error) {
	var found *engine.Document
	err := a.scanTable(r, model, func(doc *engine.Document) bool {
		if evalDoc(doc, list) {
			found = doc
			return false
		}
		return true
	})
	return found, err
}

// scanFilter streams the table page by page, collecting documents the
// evaluator accepts, stopping early once limit is reached.
func (a *Adapter) scanFilter(r engine.Reader, model string, list where.List, limit int) ([]engine.Document, error) {
	var out []engine.Document
	err := a.scanTable(r, model, func(doc *engine.Document) bool {
		if evalDoc(doc, list) {
			out = append(out, *doc)
			if limit > 0 && len(out) >= limit {
				return false
			}
		}
		return true
	})
	return out, err
}

// evalDoc applies a where-list to a document. The engine id lives outside
// the field map, so clauses naming "id" get a view that includes it.
func evalDoc(doc *engine.Document, list where.List) bool {
	for _, f := range list.Fields() {
		if f == "id" {
			view := make(map[string]any, len(doc.Fields)+1)
			view["id"] = doc.ID
			for k, v := range doc.Fields {
				view[k] = v
			}
			return where.EvaluateList(view, list)
		}
	}
	return where.EvaluateList(doc.Fields, list)
}

// scanTable drives engine pagination across the whole table, holding one
// page in memory at a time. visit returns false to stop early.
func (a *Adapter) scanTable(r engine.Reader, model string, visit func(*engine.Document) bool) error {
	cursor := ""
	for {
		res, err := r.Paginate(model, nil, engine.PageOptions{
			Cursor:   cursor,
			NumItems: engine.MaxPageSize,
		})
		if err != nil {
			return err
		}
		for i := range res.Page {
			if !visit(&res.Page[i]) {
				return nil
			}
		}
		if res.IsDone {
			return nil
		}
		cursor = res.ContinueCursor
	}
}

// sortDocuments orders docs by one field using the evaluator's comparison
// rules. Documents whose field is missing or incomparable sort first;
// ties keep engine order (the sort is stable).
func sortDocuments(docs []engine.Document, by SortBy) {
	desc := by.Direction == "desc"
	sort.SliceStable(docs, func(i, j int) bool {
		less := lessByField(docs[i].Fields[by.Field], docs[j].Fields[by.Field])
		if desc {
			return lessByField(docs[j].Fields[by.Field], docs[i].Fields[by.Field])
		}
		return less
	})
}

func lessByField(a, b any) bool {
	if a == nil && b != nil {
		return true
	}
	cmp, ok := where.Compare(a, b)
	if !ok {
		return false
	}
	return cmp < 0
}
