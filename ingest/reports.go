package ingest

// NeedsReportRefresh decides whether a committee's report sub-collection is
// due for a re-fetch. total and linked come from storage: mirrored reports in
// the target congress and the subset with at least one linked bill.
// upstreamCount is the count the committee detail payload reports.
//
// A linked count short of the total means some mirrored report is missing its
// bill association (a partial earlier failure), so the listing is re-walked.
// A nonzero upstream count also queues the walk; that over-fetches for fully
// reconciled committees, a known approximation of this heuristic.
func NeedsReportRefresh(total, linked, upstreamCount int) bool {
	return linked < total || upstreamCount > 0
}
