package render

import "go.uber.org/zap"

// reindex gives fresh IDs to everything loops produced after their first
// non-empty iteration. Outer loops go first, so shapes nested in a copied
// group get their IDs with the group.
func (r *pageRenderer) reindex() error {
	for _, rec := range r.copies {
		for _, produced := range rec.duplicates() {
			for _, e := range produced {
				s := r.page.ShapeOf(e)
				if s == nil {
					continue
				}
				if _, err := r.page.Reindex(s); err != nil {
					return err
				}
				r.dups++
			}
		}
	}
	// whatever still shares ID with loop template is a clone missed above
	for _, id := range r.loopIDs {
		same := r.page.ShapesByID(id)
		for _, s := range same[min(1, len(same)):] {
			r.log.Debug("Reindexing leftover clone", zap.String("id", id))
			if _, err := r.page.Reindex(s); err != nil {
				return err
			}
			r.dups++
		}
	}
	return nil
}

// space moves every loop copy down by accumulated height of copies before
// it, the first non-empty iteration stays in place.
func (r *pageRenderer) space() {
	for _, rec := range r.copies {
		var delta float64
		for _, produced := range rec.duplicates() {
			for _, e := range produced {
				s := r.page.ShapeOf(e)
				if s == nil {
					continue
				}
				delta += s.Height()
				s.Move(0, -delta)
			}
		}
	}
}
