// Package engine implements the keywords template renderer.
//
// An Engine turns template nodes annotated with directive attributes and
// {{ expression }} placeholders into live nodes bound to a component
// instance's data.
//
// ARCHITECTURE:
//
// Render pipeline:
// 1. MountApp runs app-entry directives on the root element, then mounts it
// 2. Mount resolves the component by tag name and its template by id,
// assigns structural ids to the template once, merges data and calls the
// initializer
// 3. Render walks the template: node-generating directives, then regular
// directives per attribute, then children (node x child cross product),
// then nested components are mounted inline
// 4. Produced nodes are appended to the mounted element
//
// Refresh:
// Refresh requests ($refreshByRef, App.Refresh) are queued on the Scheduler,
// which drains them in one batch on a later turn of the run loop. A refresh
// clears a live subtree and rebuilds it from the template. There is no
// diffing and no dependency tracking.
//
// Single goroutine:
// Rendering, directive processing, event handlers and drains all run on the
// goroutine driving the loop.Loop. Only Scheduler.Schedule and
// Scheduler.Flush may be called from other goroutines.
//
// Structural ids:
// Every element under a component's template is given the id
// "<templateId>$<n>" (document order, from 1) the first time the component
// is mounted. Live clones never carry these ids.
package engine
