// Package scene loads scenes: a page plus the scripts run against it.
//
// Scenes are YAML or TOML documents, picked by file extension or by the
// response content type when fetched over HTTP:
//
//	name: fade
//	page: |
//	  <page><view id="box"></view></page>
//	scripts:
//	  - name: fade-in
//	    source: animate("#box", { opacity: [0, 1] })
//	  - file: scripts/stagger.js
//
// LoadGlob accepts "**" patterns. Fetcher retries transient HTTP failures
// with exponential backoff.
package scene
