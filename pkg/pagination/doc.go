// Package pagination walks hh.ru search results page by page.
//
// hh.ru pages are indexed from zero and bounded by per_page. The walker
// requests pages strictly in order and stops at the first page that comes
// back empty or when the page budget is spent, whichever happens first.
//
// Example usage:
//
//	walker := pagination.NewWalker(hhClient)
//	q := vacancy.SearchQuery{Term: "Backend", PageSize: 100, MaxPages: 20}
//	for item, err := range walker.Walk(ctx, q) {
//		if err != nil {
//			return err
//		}
//		fmt.Println(item.ID)
//	}
//
// The sequence is lazy: a page is requested only when the consumer has
// drained the previous one, and breaking out of the loop stops the walk.
package pagination
