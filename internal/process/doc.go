// Package process terminates browser process trees left behind by a
// launcher that exited without cleaning up its children.
package process
