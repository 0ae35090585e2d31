// Package watcher turns filesystem notifications into debounced, ordered
// per-path changes.
//
// A Watcher forwards fsnotify events to a Debouncer. The Debouncer queues
// the kinds seen for each path and, once the tree has been quiet for the
// debounce window, hands them to an ApplyFunc one path at a time:
//
//	d := watcher.NewDebouncer(opts, nav.ApplyChange, logger)
//	defer d.Stop()
//
//	w, err := watcher.New(root, d, nav.IsExcluded, opts, logger)
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	return w.Start(ctx)
//
// Kinds queued for the same path run as Deleted, then Created, then
// Modified, so a delete followed by a re-create leaves the file present.
package watcher
