package domain

// SnapshotDiff represents the changes between two snapshots.
// It is serialized to JSON for partial updates on streaming clients.
type SnapshotDiff struct {
	ConversationID string `json:"conversation_id"`

	CurrentNodeID *string `json:"current_node,omitempty"`

	// Tools is the whole new tool list; sent only when it changed.
	Tools []Tool `json:"tools,omitempty"`

	// Messages holds the context messages appended since the old snapshot.
	Messages []Message `json:"messages,omitempty"`

	// History holds the node IDs entered since the old snapshot.
	History []string `json:"history,omitempty"`

	Ended *bool `json:"ended,omitempty"`
}

// Diff calculates the difference between oldSnap and newSnap.
// If oldSnap is nil, it returns a diff representing the entire newSnap.
// It returns nil when nothing changed.
func Diff(oldSnap, newSnap *Snapshot) *SnapshotDiff {
	if newSnap == nil {
		return nil
	}

	diff := &SnapshotDiff{ConversationID: newSnap.ConversationID}

	if oldSnap == nil || oldSnap.CurrentNodeID != newSnap.CurrentNodeID {
		diff.CurrentNodeID = &newSnap.CurrentNodeID
	}
	if oldSnap == nil {
		if newSnap.Ended {
			diff.Ended = &newSnap.Ended
		}
	} else if oldSnap.Ended != newSnap.Ended {
		diff.Ended = &newSnap.Ended
	}

	if oldSnap == nil || !sameTools(oldSnap.Tools, newSnap.Tools) {
		diff.Tools = newSnap.Tools
	}

	// Messages and history are append-only.
	var oldMsgs, oldHist int
	if oldSnap != nil {
		oldMsgs, oldHist = len(oldSnap.Messages), len(oldSnap.History)
	}
	if len(newSnap.Messages) > oldMsgs {
		diff.Messages = newSnap.Messages[oldMsgs:]
	}
	if len(newSnap.History) > oldHist {
		diff.History = newSnap.History[oldHist:]
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func sameTools(a, b []Tool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name {
			return false
		}
	}
	return true
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SnapshotDiff) IsEmpty() bool {
	return d.CurrentNodeID == nil &&
		d.Ended == nil &&
		d.Tools == nil &&
		len(d.Messages) == 0 &&
		len(d.History) == 0
}
