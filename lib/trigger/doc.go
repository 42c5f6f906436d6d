/*
Package trigger watches external resources and reports changes to a handler.

A Trigger is started once with a handler and stopped once. Two guarantees hold for
every implementation:

  - handler calls never overlap, they all run on the trigger's own goroutine
  - once Stop returns, the handler is never called again

FileTrigger uses fsnotify on the parent directory of the watched file, so it keeps
working when the file is replaced by rename and when the file does not exist yet.
Bursts of events are coalesced by a trailing debounce: the handler runs once the
file has been quiet for the debounce window and receives the last event kind seen.

PollTrigger asks a Probe for a version string at a fixed interval. It serves object
stores (ETag) and file systems without inotify.

Goroutine lifecycles are managed with gopkg.in/tomb.v2 and all timing goes through a
juju/clock Clock, so tests can drive debounce and polling with testclock.
*/
package trigger
