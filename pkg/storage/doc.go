// Package storage manages the working directory that fetched configuration
// files land in before they are archived.
//
// The portal names files itself. When a name is already taken the new file
// gets a " (N)" suffix, the same rule browsers apply to repeated downloads,
// so the classifier can still derive the category from either copy.
package storage
