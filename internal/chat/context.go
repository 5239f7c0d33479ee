// Package chat assembles bounded context windows for retrieval-grounded
// answers and runs the interactive question loop.
package chat

import "newslens/internal/core"

// BuildContext bundles retrieved summaries and recent turn history into a
// bounded context window.
//
// Retrieved items are truncated to maxItems keeping the closest (the input
// is already ordered by ascending distance); history keeps the most recent
// maxHistoryTurns, dropping oldest first. The builder never invents content:
// when nothing was retrieved the window is marked ungrounded so the
// generation side can decline or caveat instead of hallucinating.
func BuildContext(retrieved []core.RetrievedContextItem, history []core.ChatTurn, maxItems, maxHistoryTurns int) core.ContextWindow {
	if maxItems < 0 {
		maxItems = 0
	}
	if maxHistoryTurns < 0 {
		maxHistoryTurns = 0
	}

	items := retrieved
	if len(items) > maxItems {
		items = items[:maxItems]
	}

	turns := history
	if len(turns) > maxHistoryTurns {
		turns = turns[len(turns)-maxHistoryTurns:]
	}

	window := core.ContextWindow{
		Items:    append([]core.RetrievedContextItem{}, items...),
		History:  append([]core.ChatTurn{}, turns...),
		Grounded: len(items) > 0,
	}
	return window
}
