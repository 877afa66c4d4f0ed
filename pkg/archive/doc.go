// Package archive packs fetched configuration files into a single zip with
// one directory per region, e.g. US/wg-us-1.conf, and clears the working
// state afterwards.
package archive
