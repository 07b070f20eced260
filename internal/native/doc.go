// Package native is a headless rendering substrate for element views.
//
// A Tree holds an HTML document and implements element.Native on top of
// it. Writes mutate the document immediately and are recorded as pending
// operations; FlushElementTree commits them, renders a snapshot and
// publishes a FlushEvent to subscribers.
//
// Features:
//   - goquery/cascadia: selector queries scoped to a node
//   - htmlquery: XPath queries for inspection
//   - bluemonday: optional sanitization of loaded pages
//   - douceur: inline style declaration merging
//   - chardet: charset detection of loaded pages
package native
