/*
Package loader applies change streams to stores.

A Loader is bound to one Stream and one target Store. It implements store.Store
itself by delegating every call to the currently active store, so callers hold the
loader and never notice a reload.

Strategies:

  - Inplace (default): records are applied to the live store while they are read.
    Add and Update become Set, Delete becomes Delete, Unknown is skipped. Readers
    may observe a half applied reload.
  - Replace: a fresh store is built through Options.NewStore from the whole stream,
    then swapped in atomically and the previous store is closed. Delete and Unknown
    records are skipped since the fresh store starts empty. Readers see either the
    complete old or the complete new data set. A failed build is discarded and the
    old store stays active.

Reloads are serialised. After each completed reload the registered listeners are
called in registration order with an EventReloaded event. When the source
disappears (reported by the trigger) listeners receive EventDeleted instead and no
reload is attempted. Listener errors are logged and never abort a reload.

With an optional trigger.Trigger the loader reloads on its own. Close stops the
trigger first, waits for a running reload and closes the active store. No listener
is called once Close has returned.

Listeners run while the reload lock is held and must not call Reload or Close.
*/
package loader
