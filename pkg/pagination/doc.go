// Package pagination provides paced batch fetching for paginated
// upstream resource collections.
//
// The upstream API reports total_pages and per_page in every page
// envelope and enforces a hard requests-per-second quota. This package
// fetches page 1 to discover the page count, then fetches the
// remainder in fixed-width concurrent tranches separated by a cooldown
// so the aggregate rate never exceeds the quota.
//
// Example usage:
//
//	paginator := pagination.New(anClient, pagination.DefaultConfig())
//	items, err := paginator.FetchItems(ctx, "lists", "lists", org, 0)
//
// The paginator:
//   - Fetches the first page to determine total pages and page size
//   - Bounds the page count when a maximum item count is requested
//   - Dispatches remaining pages in tranches of the quota width
//   - Reassociates results by page number, not completion order
//   - Aborts the whole run on any page failure (a partial page set
//     breaks the total-page-count bookkeeping)
package pagination
