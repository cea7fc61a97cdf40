// Package tail follows a growing file the way `tail -n0 -f` does.
//
// Follower opens the file, seeks to its end and hands every newly appended,
// newline-terminated line to a callback. A partial last line is held back
// until its newline arrives. New data is detected through fsnotify write
// events, with a periodic poll as fallback for filesystems that do not
// deliver them.
//
// Truncation restarts reading from the beginning. Removal or rename of the
// followed file, or a read error, ends Run with an error: there is no reopen.
package tail
