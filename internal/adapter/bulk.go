package adapter

import (
	"context"

	"github.com/roach88/convexauth/internal/engine"
)

// bulkDelete removes every document reachable through ref, one page per
// transaction, and returns the total removed. Pages are not atomic with each
// other: a crash between pages leaves earlier pages deleted and later ones
// intact, which is safe because delete is idempotent and re-running the same
// bulk operation converges.
//
// When the engine signals a split, the next page starts from SplitCursor
// rather than ContinueCursor. The split cursor divides the returned page and
// never points past unseen documents, so revisited documents are already
// deleted and the count stays exact.
func (a *Adapter) bulkDelete(ctx context.Context, model string, ref engine.IndexRef, pageSize int) (int, error) {
	total := 0
	cursor := ""
	for {
		var res *engine.PageResult
		err := a.eng.Update(ctx, func(w engine.Writer) error {
			var err error
			res, err = w.Paginate(model, &ref, engine.PageOptions{
				Cursor:   cursor,
				NumItems: pageSize,
			})
			if err != nil {
				return err
			}
			for i := range res.Page {
				if err := w.Remove(model, res.Page[i].ID); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return total, err
		}

		total += len(res.Page)
		if res.IsDone {
			return total, nil
		}
		if res.SplitCursor != "" {
			cursor = res.SplitCursor
		} else {
			cursor = res.ContinueCursor
		}
	}
}
