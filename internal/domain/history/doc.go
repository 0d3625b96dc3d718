// Package history keeps a small, recency-ordered list of past generations.
//
// The cache is replaced wholesale on every successful load. A failed fetch
// is logged and leaves the previous contents in place; callers may inspect
// the returned *FetchError but nothing depends on it.
//
// Example Usage:
//
//	cache := history.NewCache(client, history.WithLogger(logger))
//	_ = cache.Load(ctx, 5)
//	for _, r := range cache.Records() {
//		fmt.Println(r.ID, r.PromptSnippet)
//	}
package history
