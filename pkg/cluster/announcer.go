package cluster

import (
	"log/slog"

	"raftlog/pkg/role"
)

// Announcer bridges leader step-down into the membership registry: when the
// role transitions, the new state is published on this node's znode.
type Announcer struct {
	membership *ZKMembership
}

func NewAnnouncer(m *ZKMembership) *Announcer {
	return &Announcer{membership: m}
}

// TransitionTo implements role.Transitioner. Announcement is best-effort:
// a registry hiccup must not block the step-down path.
func (a *Announcer) TransitionTo(target role.Target) {
	if err := a.membership.AnnounceRole(target.String()); err != nil {
		slog.Warn("failed to announce role transition", "target", target.String(), "error", err)
	}
}
