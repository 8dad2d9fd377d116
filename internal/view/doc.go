// Package view models the stats page and the updaters that fill it.
//
// A [Page] is addressed by element ID, the same IDs the HTML template in templates/index.html
// carries. Each updater writes one section from fetched data and leaves the section's
// placeholder in place when there is nothing to show. [Build] applies every updater to a
// [models.Wrapped] and [Render] writes the page as HTML.
package view
