// Package browser implements the portal driver on top of a real Chrome
// controlled through the DevTools protocol. Each session gets its own
// browser process and profile, and downloads are staged in a private
// directory before they are moved into the working directory.
package browser
