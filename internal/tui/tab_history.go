package tui

import (
	"fmt"

	"github.com/theirongolddev/runledger/internal/model"
)

func (a App) filteredHistory() []model.StoredRecord {
	if a.histState.query == "" {
		return a.committed
	}
	var out []model.StoredRecord
	for _, r := range a.committed {
		if matchRecord(r.RunRecord, a.histState.query) {
			out = append(out, r)
		}
	}
	return out
}

func (a App) renderHistoryTab(cw, h int) string {
	if len(a.committed) == 0 {
		return a.emptyCard("History", "Nothing committed yet. Commit runs from the Pending tab with [c].", cw)
	}

	stored := a.filteredHistory()
	recs := make([]model.RunRecord, len(stored))
	ids := make([]int64, len(stored))
	for i, s := range stored {
		recs[i] = s.RunRecord
		ids[i] = s.ID
	}
	return a.renderRecordSplit(fmt.Sprintf("History [%d]", len(stored)), recs, ids, &a.histState, cw, h,
		"[/] search  [j/k] navigate  [J/K] scroll")
}
