// Package resources serves the dashboard's stylesheet and script.
package resources

import "strings"

// Prefix is the URL path the assets are mounted under.
const Prefix = "/static/"

// Path returns the URL of a static asset. Embedded builds append a content
// version so browsers may cache the file for good.
func Path(name string) string {
	name = strings.TrimPrefix(name, "/")
	if v := version(name); v != "" {
		return Prefix + name + "?v=" + v
	}
	return Prefix + name
}
